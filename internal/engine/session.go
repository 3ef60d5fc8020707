// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"time"

	"docrecon/internal/observability"
)

// editSession accumulates field edits for one document and persists them
// after the operator pauses typing.
type editSession struct {
	docID   string
	pending map[string]string
	timer   *time.Timer
}

// StageFieldEdit buffers a field edit. The write to the store is debounced:
// each new edit resets the timer, and the pending set persists as one save
// once the operator pauses.
func (e *Engine) StageFieldEdit(docID, field, value string) error {
	e.sessMu.Lock()
	defer e.sessMu.Unlock()

	if e.closed {
		return errors.New("engine is closed")
	}

	sess, ok := e.sessions[docID]
	if !ok {
		sess = &editSession{docID: docID, pending: make(map[string]string)}
		e.sessions[docID] = sess
	}
	sess.pending[field] = value

	if sess.timer != nil {
		sess.timer.Stop()
	}
	sess.timer = time.AfterFunc(e.debounce, func() {
		if err := e.Flush(docID); err != nil && e.observer != nil {
			e.observer.LogOperation(observability.StandardObservabilityData{
				Component:  "engine",
				Operation:  "flush_edits",
				DocumentID: docID,
				Success:    false,
				Error:      err.Error(),
			})
		}
	})
	return nil
}

// Flush persists any buffered edits for the document immediately.
func (e *Engine) Flush(docID string) error {
	e.sessMu.Lock()
	sess, ok := e.sessions[docID]
	if !ok || len(sess.pending) == 0 {
		e.sessMu.Unlock()
		return nil
	}
	if sess.timer != nil {
		sess.timer.Stop()
	}
	pending := sess.pending
	sess.pending = make(map[string]string)
	e.sessMu.Unlock()

	ctx := context.Background()
	doc, err := e.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if doc.Exported() {
		return ErrExported
	}
	if doc.Fields == nil {
		doc.Fields = make(map[string]string)
	}
	for field, value := range pending {
		doc.Fields[field] = value
	}
	return e.store.SaveDocument(ctx, doc)
}

// Close flushes every open edit session and stops the timers. The engine
// accepts no further edits afterwards.
func (e *Engine) Close() error {
	e.sessMu.Lock()
	if e.closed {
		e.sessMu.Unlock()
		return nil
	}
	e.closed = true
	ids := make([]string, 0, len(e.sessions))
	for id, sess := range e.sessions {
		if sess.timer != nil {
			sess.timer.Stop()
		}
		ids = append(ids, id)
	}
	e.sessMu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := e.Flush(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
