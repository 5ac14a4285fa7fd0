package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Badge prefixes every notice.
const Badge = "DJ CSV"

// Notice is a single user-facing status message.
type Notice struct {
	Message string
	IsError bool
}

// Render styles n as a one-line notice.
func (n Notice) Render() string {
	text := styles.ok.Render(n.Message)
	if n.IsError {
		text = styles.err.Render(n.Message)
	}
	return styles.badge.Render(Badge) + " " + text
}

// Notifier prints styled notices to a terminal.
type Notifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewNotifier creates a Notifier writing to w, or [os.Stderr] when w is nil.
func NewNotifier(w io.Writer) *Notifier {
	if w == nil {
		w = os.Stderr
	}
	return &Notifier{w: w}
}

func (n *Notifier) Notify(msg string, isError bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, Notice{Message: msg, IsError: isError}.Render())
}

// NoticeQueue buffers notices for the TUI, which renders them between frames.
//
// Notify never blocks; notices beyond the buffer are dropped.
type NoticeQueue struct {
	ch chan Notice
}

func NewNoticeQueue(size int) *NoticeQueue {
	if size < 1 {
		size = 1
	}
	return &NoticeQueue{ch: make(chan Notice, size)}
}

func (q *NoticeQueue) Notify(msg string, isError bool) {
	select {
	case q.ch <- Notice{Message: msg, IsError: isError}:
	default:
	}
}
