package session

// catalog holds the database names of the active connection
type catalog struct {
	databases []string
	active    string
}

func (c *catalog) replace(names []string) {
	c.databases = append([]string(nil), names...)
}

func (c *catalog) clear() {
	c.databases = nil
	c.active = ""
}

// defaultDatabase is the database selected after the list is refreshed
func (c *catalog) defaultDatabase() string {
	if len(c.databases) == 0 {
		return ""
	}
	return c.databases[0]
}
