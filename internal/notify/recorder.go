package notify

import (
	"context"
	"sync"
)

// Document is an upload captured by Recorder.
type Document struct {
	Filename string
	Data     []byte
	Caption  string
}

// Recorder is an in-memory Channel for local runs and tests.
type Recorder struct {
	mu        sync.Mutex
	messages  []string
	documents []Document
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) PostMessage(ctx context.Context, text string) (MessageID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
	return MessageID(len(r.messages)), nil
}

func (r *Recorder) PostDocument(ctx context.Context, filename string, data []byte, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents = append(r.documents, Document{
		Filename: filename,
		Data:     append([]byte(nil), data...),
		Caption:  caption,
	})
	return nil
}

func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *Recorder) Documents() []Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Document(nil), r.documents...)
}
