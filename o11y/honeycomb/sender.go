package honeycomb

import (
	"errors"

	"github.com/honeycombio/libhoney-go/transmission"
)

// MultiSender fans every event out to all of its Senders.
type MultiSender struct {
	Senders []transmission.Sender
}

func (s *MultiSender) Add(ev *transmission.Event) {
	for _, tx := range s.Senders {
		tx.Add(ev)
	}
}

// Start starts every Sender, stopping at the first error.
func (s *MultiSender) Start() error {
	if len(s.Senders) == 0 {
		return errors.New("no senders configured")
	}
	for _, tx := range s.Senders {
		if err := tx.Start(); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops every Sender, stopping at the first error.
func (s *MultiSender) Stop() error {
	for _, tx := range s.Senders {
		if err := tx.Stop(); err != nil {
			return err
		}
	}
	return nil
}

func (s *MultiSender) Flush() error {
	var errs []error
	for _, tx := range s.Senders {
		if err := tx.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TxResponses returns the response channel of the first Sender only.
func (s *MultiSender) TxResponses() chan transmission.Response {
	return s.Senders[0].TxResponses()
}

func (s *MultiSender) SendResponse(resp transmission.Response) bool {
	pending := false
	for _, tx := range s.Senders {
		pending = tx.SendResponse(resp) || pending
	}
	return pending
}
