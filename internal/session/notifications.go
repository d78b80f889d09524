package session

import (
	"fmt"

	"github.com/rebeliceyang/sequel/internal/models"
)

// notifier holds the one live snackbar. A new notification replaces the old one.
type notifier struct {
	current models.AppSnackbar
}

func (n *notifier) show(s models.AppSnackbar) {
	s.Show = true
	n.current = s
}

// hide keeps the text so a fading snackbar still has something to render
func (n *notifier) hide() {
	n.current.Show = false
}

func successNotice(message string) models.AppSnackbar {
	return models.AppSnackbar{Message: message, Color: models.ColorSuccess}
}

func failureNotice(prefix string, err error) models.AppSnackbar {
	return models.AppSnackbar{
		Message: fmt.Sprintf("%s: %v", prefix, err),
		Color:   models.ColorError,
		Error:   true,
	}
}

func responseNotice(resp *models.QueryResponseContext) models.AppSnackbar {
	color := resp.Color
	if color == "" {
		color = models.ColorSuccess
		if !resp.Status {
			color = models.ColorError
		}
	}
	message := resp.Message
	if !resp.Status && resp.Error != "" {
		message = resp.Error
	}
	return models.AppSnackbar{Message: message, Color: color, Error: !resp.Status}
}
