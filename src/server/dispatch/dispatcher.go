// Package dispatch implements the reader/writer engine of the protocol
// session: request/response correlation, inbound routing and outbound
// serialization.
package dispatch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"lsp-client/src/internal/common"
	"lsp-client/src/internal/constants"
	"lsp-client/src/internal/errors"
	"lsp-client/src/internal/types"
	"lsp-client/src/server/protocol"
)

// RequestHandler services a server-initiated request. The returned value is
// marshaled into the response; a returned error becomes an error response.
type RequestHandler func(params interface{}) (interface{}, error)

// NotificationHandler services a server-initiated notification.
type NotificationHandler func(params interface{})

// callResult carries one resolved response to the waiting caller.
type callResult struct {
	result json.RawMessage
	rpcErr *protocol.RPCError
}

// pendingCall correlates a sent request with its eventual response. Exactly
// one pendingCall exists per outstanding id.
type pendingCall struct {
	respCh chan callResult
	done   chan struct{}
}

// Dispatcher owns the single reader loop and the serialized writer for one
// connection. Many calls may be in flight concurrently, distinguished solely
// by id.
type Dispatcher struct {
	language string
	writer   io.Writer
	stopCh   <-chan struct{}

	// writeMu serializes outbound frames so concurrent callers never
	// interleave partial writes.
	writeMu sync.Mutex

	// mu guards requests and nextID; held for map operations only, never
	// across a suspension.
	mu       sync.RWMutex
	requests map[string]*pendingCall
	nextID   int64

	// recentTimeouts remembers ids whose caller already gave up, so a late
	// response can be told apart from a true protocol violation.
	timeoutsMu     sync.RWMutex
	recentTimeouts map[string]time.Time

	handlersMu    sync.RWMutex
	reqHandlers   map[string]RequestHandler
	notifHandlers map[string]NotificationHandler

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// NewDispatcher creates a dispatcher writing frames to writer. stopCh is the
// process supervisor's stop signal; when it closes, in-flight calls fail.
func NewDispatcher(language string, writer io.Writer, stopCh <-chan struct{}) *Dispatcher {
	return &Dispatcher{
		language:       language,
		writer:         writer,
		stopCh:         stopCh,
		requests:       make(map[string]*pendingCall),
		recentTimeouts: make(map[string]time.Time),
		reqHandlers:    make(map[string]RequestHandler),
		notifHandlers:  make(map[string]NotificationHandler),
		closed:         make(chan struct{}),
	}
}

// OnRequest registers a handler for a server-initiated request method.
// Request and notification handlers live in independent namespaces.
func (d *Dispatcher) OnRequest(method string, handler RequestHandler) {
	d.handlersMu.Lock()
	d.reqHandlers[method] = handler
	d.handlersMu.Unlock()
}

// OnNotification registers a handler for a server-initiated notification.
func (d *Dispatcher) OnNotification(method string, handler NotificationHandler) {
	d.handlersMu.Lock()
	d.notifHandlers[method] = handler
	d.handlersMu.Unlock()
}

// Call sends a request and suspends the caller until the reader loop
// resolves its id, the context deadline elapses, or the connection closes.
// A timed-out id is discarded; a response arriving later is dropped.
func (d *Dispatcher) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if err := d.closeReason(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.nextID++
	idVal := d.nextID
	id := strconv.FormatInt(idVal, 10)
	call := &pendingCall{
		respCh: make(chan callResult, 1),
		done:   make(chan struct{}),
	}
	d.requests[id] = call
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.requests, id)
		d.mu.Unlock()
		close(call.done)
	}()

	msg := protocol.NewRequest(idVal, method, params)
	if err := d.write(msg); err != nil {
		return nil, fmt.Errorf("failed to send request %s: %w", method, err)
	}

	started := time.Now()
	select {
	case res := <-call.respCh:
		if res.rpcErr != nil {
			return nil, errors.NewLSPError(res.rpcErr.Code, res.rpcErr.Message, res.rpcErr.Data)
		}
		return res.result, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			d.rememberTimeout(id)
			d.cancelOnWire(idVal)
			common.LSPLogger.Error("Request timeout: method=%s, id=%s", method, id)
			return nil, errors.NewTimeoutError(method, d.language, time.Since(started).Round(time.Millisecond))
		}
		return nil, ctx.Err()
	case <-d.closed:
		return nil, d.closeReason()
	case <-d.stopCh:
		return nil, errors.NewConnectionClosedError(d.language, nil)
	}
}

// Notify sends a notification; no reply is awaited.
func (d *Dispatcher) Notify(ctx context.Context, method string, params interface{}) error {
	if err := d.closeReason(); err != nil {
		return err
	}
	return d.write(protocol.NewNotification(method, params))
}

// Run is the single reader loop. It decodes frames strictly in arrival
// order; handler invocation runs on its own goroutine so a slow handler
// never stalls decoding of the next frame. When decoding fails or the
// stream ends, every outstanding call fails with a connection-closed error
// and the loop terminates.
func (d *Dispatcher) Run(stdout io.Reader) error {
	reader := bufio.NewReaderSize(stdout, constants.ResponseBufferSize)

	for {
		select {
		case <-d.stopCh:
			d.closeWith(errors.NewConnectionClosedError(d.language, nil))
			return nil
		default:
		}

		msg, err := protocol.ReadMessage(reader)
		if err != nil {
			if err == io.EOF {
				d.closeWith(errors.NewConnectionClosedError(d.language, nil))
				return nil
			}
			d.closeWith(errors.NewConnectionClosedError(d.language, err))
			return err
		}

		switch {
		case msg.IsResponse():
			d.deliverResponse(msg.ID, msg.Result, msg.Error)
		case msg.IsRequest():
			go d.handleServerRequest(msg)
		default:
			go d.handleServerNotification(msg)
		}
	}
}

// Close fails all outstanding and future calls with a connection-closed
// error. Safe to call from the process monitor and the reader loop alike.
func (d *Dispatcher) Close(cause error) {
	d.closeWith(errors.NewConnectionClosedError(d.language, cause))
}

// Closed is closed once the connection is unusable.
func (d *Dispatcher) Closed() <-chan struct{} {
	return d.closed
}

func (d *Dispatcher) closeWith(err error) {
	d.closeOnce.Do(func() {
		d.closeErr = err
		close(d.closed)
	})
}

func (d *Dispatcher) closeReason() error {
	select {
	case <-d.closed:
		if d.closeErr != nil {
			return d.closeErr
		}
		return errors.NewConnectionClosedError(d.language, nil)
	default:
		return nil
	}
}

func (d *Dispatcher) write(msg protocol.Message) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return protocol.WriteMessage(d.writer, msg)
}

// pendingKey normalizes a response id to the pending-table key. Requests go
// out with integer ids, but JSON decoding hands them back as float64, which
// fmt renders in exponent form from 1e6 upward and would never match the
// key written by Call.
func pendingKey(id interface{}) string {
	switch v := id.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// deliverResponse resolves the pending call for a response id. An id with no
// pending call is a protocol violation unless the caller recently timed out.
func (d *Dispatcher) deliverResponse(id interface{}, result interface{}, rpcErr *protocol.RPCError) {
	idStr := pendingKey(id)

	d.mu.RLock()
	call, exists := d.requests[idStr]
	d.mu.RUnlock()

	if !exists {
		d.timeoutsMu.RLock()
		timedOutAt, wasTimeout := d.recentTimeouts[idStr]
		d.timeoutsMu.RUnlock()

		if wasTimeout && time.Since(timedOutAt) < constants.RecentTimeoutWindow {
			common.LSPLogger.Debug("Dropping late response for timed-out request: id=%s (timed out %v ago)", idStr, time.Since(timedOutAt))
		} else {
			common.LSPLogger.Warn("No matching request found for response: id=%s", idStr)
		}
		return
	}

	res := callResult{rpcErr: rpcErr}
	if rpcErr == nil {
		res.result = protocol.MarshalResult(result)
	}

	select {
	case call.respCh <- res:
	case <-call.done:
		common.LSPLogger.Warn("Request already completed when delivering response: id=%s", idStr)
	case <-d.stopCh:
		common.LSPLogger.Warn("Stopped while delivering response: id=%s", idStr)
	}
}

// handleServerRequest looks up and invokes the registered handler and writes
// back a response. An unmatched method yields a MethodNotFound error
// response per the protocol.
func (d *Dispatcher) handleServerRequest(msg *protocol.Message) {
	d.handlersMu.RLock()
	handler, ok := d.reqHandlers[msg.Method]
	d.handlersMu.RUnlock()

	var response protocol.Message
	if !ok {
		common.LSPLogger.Debug("No handler for server request %s from %s", msg.Method, d.language)
		response = protocol.NewResponse(msg.ID, nil, protocol.NewMethodNotFoundError(msg.Method))
	} else if result, err := handler(msg.Params); err != nil {
		response = protocol.NewResponse(msg.ID, nil, protocol.NewInternalError(err.Error()))
	} else if result == nil {
		// Servers expect an explicit null result.
		response = protocol.NewResponse(msg.ID, json.RawMessage("null"), nil)
	} else {
		response = protocol.NewResponse(msg.ID, result, nil)
	}

	if err := d.write(response); err != nil {
		common.LSPLogger.Error("Failed to respond to server request %s: %v", msg.Method, err)
	}
}

// handleServerNotification invokes the registered handler. An unmatched
// notification is dropped; there is no caller to inform.
func (d *Dispatcher) handleServerNotification(msg *protocol.Message) {
	d.handlersMu.RLock()
	handler, ok := d.notifHandlers[msg.Method]
	d.handlersMu.RUnlock()

	if !ok {
		common.LSPLogger.Debug("Dropping unhandled notification %s from %s", msg.Method, d.language)
		return
	}
	handler(msg.Params)
}

// rememberTimeout records a timed-out id and prunes entries older than the
// bookkeeping window.
func (d *Dispatcher) rememberTimeout(id string) {
	d.timeoutsMu.Lock()
	d.recentTimeouts[id] = time.Now()
	for reqID, at := range d.recentTimeouts {
		if time.Since(at) > constants.RecentTimeoutWindow {
			delete(d.recentTimeouts, reqID)
		}
	}
	d.timeoutsMu.Unlock()
}

// cancelOnWire sends a best-effort $/cancelRequest for an abandoned call.
// The request already went out; this only asks the server to stop working.
func (d *Dispatcher) cancelOnWire(id int64) {
	if err := d.closeReason(); err != nil {
		return
	}
	params := map[string]interface{}{"id": id}
	if err := d.write(protocol.NewNotification(types.MethodCancelRequest, params)); err != nil {
		common.LSPLogger.Debug("Failed to send cancel for id=%d: %v", id, err)
	}
}
