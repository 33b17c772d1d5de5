package services

import "github.com/charmbracelet/log"

// Notifier surfaces transient user-facing messages (toasts) for gateway mutations.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes toasts to a logger.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(msg string) { n.logger.Info(msg) }
func (n *LogNotifier) Error(msg string)   { n.logger.Error(msg) }

// ChanNotifier forwards toasts to a channel without blocking; messages are dropped when the buffer is full.
type ChanNotifier struct {
	C chan Toast
}

// Toast is a message delivered by [ChanNotifier].
type Toast struct {
	Message string
	IsError bool
}

func NewChanNotifier(size int) *ChanNotifier {
	return &ChanNotifier{C: make(chan Toast, size)}
}

func (n *ChanNotifier) Success(msg string) { n.send(Toast{Message: msg}) }
func (n *ChanNotifier) Error(msg string)   { n.send(Toast{Message: msg, IsError: true}) }

func (n *ChanNotifier) send(t Toast) {
	select {
	case n.C <- t:
	default:
	}
}
