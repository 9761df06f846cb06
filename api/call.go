package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/jonwraymond/apicall/cache"
	"github.com/jonwraymond/apicall/observe"
	"github.com/jonwraymond/apicall/resilience"
	"github.com/jonwraymond/apicall/transport"
)

// Call invokes the call at a dotted path with positional arguments. The
// Force marker may appear among args.
func (c *Client) Call(ctx context.Context, path string, args ...any) (any, error) {
	return c.Invoke(ctx, path, Positional(args...))
}

// Invoke invokes the call at a dotted path.
func (c *Client) Invoke(ctx context.Context, path string, args Args) (any, error) {
	p, err := c.root.Get(path)
	if err != nil {
		return nil, err
	}
	return p.Invoke(ctx, args)
}

func (c *Client) meta(s *Spec) observe.CallMeta {
	return observe.CallMeta{
		Class:    c.class.name,
		Path:     s.Path(),
		Kind:     s.Kind.String(),
		Instance: c.id,
		Private:  s.Private,
	}
}

func (c *Client) invoke(ctx context.Context, s *Spec, args Args) (any, error) {
	run := c.obs.Wrap(func(ctx context.Context, meta observe.CallMeta, in any) (any, error) {
		return c.execute(ctx, s, meta, in.(Args))
	})
	return run(ctx, c.meta(s), args.normalize())
}

func (c *Client) execute(ctx context.Context, s *Spec, meta observe.CallMeta, args Args) (any, error) {
	ticket, err := c.admit(ctx, s.Throttle, meta)
	if err != nil {
		return nil, err
	}
	if s.Private && c.Public() {
		ticket.Release()
		return nil, &Error{Message: "only available in the private API", kind: ErrPrivate}
	}

	var (
		value any
		fresh bool
	)
	if s.Kind == KindBatch {
		value, fresh, err = c.batch(ctx, s, meta, args)
	} else {
		value, fresh, err = c.single(ctx, s, meta, args)
	}
	if err != nil {
		if errors.Is(err, ErrValidation) {
			ticket.Release()
		}
		return nil, err
	}
	if fresh {
		c.invalidate(ctx, s, meta)
	}
	return value, nil
}

func (c *Client) admit(ctx context.Context, t *Throttle, meta observe.CallMeta) (*resilience.Ticket, error) {
	if t == nil || !c.ThrottlingEnabled() {
		return nil, nil
	}
	ticket, err := c.class.window.Acquire(ctx, t.config())
	if err != nil {
		return nil, err
	}
	c.obs.RecordThrottle(ctx, meta, ticket.Waited())
	return ticket, nil
}

func (c *Client) single(ctx context.Context, s *Spec, meta observe.CallMeta, args Args) (any, bool, error) {
	load := c.loader(s, args)
	if s.Cache == nil || !c.CacheEnabled() {
		if s.Cache != nil {
			c.logger.WithCall(meta).Debug(ctx, "cache disabled")
		}
		v, err := load(ctx, args.Positional)
		if err != nil {
			return nil, true, err
		}
		return v, true, nil
	}

	res, err := c.cached.Single(ctx, cache.Call{
		Bucket: s.ID(),
		Args:   args.Positional,
		Named:  args.Named,
		Force:  args.Force,
		TTL:    s.Cache.TTL,
		Replay: c.replayer(s),
	}, load)
	c.obs.RecordCache(ctx, meta, res.Hit, 1)
	if res.Hit {
		c.logger.WithCall(meta).Debug(ctx, "cache hit")
	}
	if err != nil {
		return nil, !res.Hit, err
	}
	return res.Value, !res.Hit, nil
}

func (c *Client) batch(ctx context.Context, s *Spec, meta observe.CallMeta, args Args) (any, bool, error) {
	mw := c.cached
	enabled := s.Cache != nil && c.CacheEnabled()
	if !enabled {
		mw = c.uncached
		if s.Cache != nil {
			c.logger.WithCall(meta).Debug(ctx, "cache disabled")
		}
	}
	call := cache.Call{
		Bucket:  s.ID(),
		Args:    args.Positional,
		Named:   args.Named,
		Force:   args.Force,
		Retries: s.retries(),
		Demux:   s.Demux,
		Replay:  c.replayer(s),
	}
	if s.Cache != nil {
		call.TTL = s.Cache.TTL
	}

	res, err := mw.Batch(ctx, call, c.loader(s, args))
	if errors.Is(err, cache.ErrItemClash) {
		err = fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err != nil {
		return nil, !res.Hit, err
	}
	if enabled {
		missed := 0
		if len(res.Requested) > 0 {
			missed = len(res.Requested[0])
		}
		c.obs.RecordCache(ctx, meta, true, len(res.Values)-missed+len(res.Unresolved))
		c.obs.RecordCache(ctx, meta, false, missed)
	}
	if len(res.Unresolved) > 0 {
		c.logger.WithCall(meta).Debug(ctx, "dropped unresolved items",
			observe.Field{Key: "items", Value: res.Unresolved},
			observe.Field{Key: "attempts", Value: len(res.Requested)})
	}
	return res.Values, !res.Hit, nil
}

// loader runs the handler and normalizes its result.
func (c *Client) loader(s *Spec, args Args) cache.Loader {
	return func(ctx context.Context, positional []any) (any, error) {
		ctx, slot := withSlot(ctx)
		v, err := s.Handler(ctx, c, Args{Positional: positional, Named: args.Named, Force: args.Force})
		if err != nil {
			return nil, err
		}
		if v == nil {
			resp := slot.get()
			if resp == nil {
				resp = c.LastResponse()
			}
			if resp == nil {
				return nil, &Error{
					Message: fmt.Sprintf("no response from %s ; check that the server still responds", c.baseURL()),
					kind:    ErrNoResponse,
				}
			}
			v = resp.Body()
			if resp.StatusCode >= http.StatusBadRequest && !errorShaped(v) {
				v = map[string]any{"error": http.StatusText(resp.StatusCode), "status": resp.StatusCode}
			}
		}
		if e := c.remoteError(s, v); e != nil {
			return v, e
		}
		return v, nil
	}
}

func (c *Client) replayer(s *Spec) cache.Replayer {
	return func(v any) (any, error) {
		if e := c.remoteError(s, v); e != nil {
			return nil, e
		}
		return v, nil
	}
}

var codeFields = []string{"status", "code", "statusCode", "status_code"}

func errorShaped(v any) bool {
	m, ok := v.(map[string]any)
	return ok && m["error"] != nil
}

// remoteError returns the *Error carried by an error-shaped value, or nil.
func (c *Client) remoteError(s *Spec, v any) *Error {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	raw := m["error"]
	if raw == nil {
		return nil
	}
	msg, ok := raw.(string)
	if !ok {
		msg = fmt.Sprint(raw)
	}
	allowed := func(phrase string) bool { return phrase != "" && strings.Contains(msg, phrase) }
	if slices.ContainsFunc(c.noError, allowed) || slices.ContainsFunc(s.NoError, allowed) {
		return nil
	}

	e := &Error{Message: msg}
	for _, f := range codeFields {
		if code, ok := asCode(m[f]); ok {
			e.Code = code
			break
		}
	}
	return e
}

func asCode(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, n != 0
	case int64:
		return int(n), n != 0
	case float64:
		return int(n), n != 0
	default:
		return 0, false
	}
}

func (c *Client) invalidate(ctx context.Context, s *Spec, meta observe.CallMeta) {
	for _, name := range s.Invalidates {
		target, ok := c.tree.Resolve(name)
		if !ok {
			continue
		}
		if err := c.store.Clear(ctx, target.ID()); err != nil {
			c.logger.WithCall(meta).Warn(ctx, "invalidation failed",
				observe.Field{Key: "bucket", Value: target.ID()},
				observe.Field{Key: "error", Value: err.Error()})
			continue
		}
		c.logger.WithCall(meta).Debug(ctx, "cache invalidated",
			observe.Field{Key: "bucket", Value: target.ID()})
	}
}

// responseSlot holds the last response of one invocation, so that concurrent
// calls on a client never read each other's responses.
type responseSlot struct {
	mu   sync.Mutex
	resp *transport.Response
}

func (s *responseSlot) set(r *transport.Response) {
	s.mu.Lock()
	s.resp = r
	s.mu.Unlock()
}

func (s *responseSlot) get() *transport.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resp
}

type slotKey struct{}

func withSlot(ctx context.Context) (context.Context, *responseSlot) {
	slot := &responseSlot{}
	return context.WithValue(ctx, slotKey{}, slot), slot
}

func slotFrom(ctx context.Context) *responseSlot {
	slot, _ := ctx.Value(slotKey{}).(*responseSlot)
	return slot
}
