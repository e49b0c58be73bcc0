package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/circleci/visits/o11y"
)

const contextKey = "visits-session"

// Middleware attaches a session to each request. The session is loaded from store by the
// id in the request's cookie; a missing, malformed or unknown id starts a new session.
//
// Changes are persisted just before the response headers are written, or after the
// handler when it writes nothing. A new session that was never modified is not stored
// and no cookie is set. A store error aborts the request with 400 Bad Request.
func Middleware(store Store, cfg Config) gin.HandlerFunc {
	cfg = cfg.withDefaults()
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		sess, hadCookie, err := load(ctx, store, cfg, c.Request)
		if err != nil && !o11y.IsWarning(err) {
			_ = c.Error(err)
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Set(contextKey, sess)

		w := &committingWriter{
			ResponseWriter: c.Writer,
			commit: func() error {
				return commit(ctx, store, cfg, sess, hadCookie, c.Writer.Header())
			},
		}
		c.Writer = w
		defer func() {
			c.Writer = w.ResponseWriter
		}()

		c.Next()

		if err := w.commitOnce(); err != nil {
			_ = c.Error(err)
		}
	}
}

// FromContext returns the session Middleware attached to the request, or nil when
// the route is not behind Middleware.
func FromContext(c *gin.Context) *Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Session)
	return s
}

// load resolves the request's session. A cookie that cannot hold a session id is
// reported as a warning alongside a new session.
func load(ctx context.Context, store Store, cfg Config, r *http.Request) (_ *Session, hadCookie bool, err error) {
	ctx, span := o11y.StartSpan(ctx, "session: resolve")
	defer o11y.End(span, &err)
	span.RecordMetric(o11y.Timing("session.resolve", "result", "session.created"))

	created := func() *Session {
		cfg.Metrics.op(opCreate)
		span.AddRawField("session.created", true)
		span.RecordMetric(o11y.Incr("session.created"))
		return newSession()
	}

	cookie, err := r.Cookie(cfg.CookieName)
	if err != nil {
		return created(), false, nil
	}

	if _, err := uuid.Parse(cookie.Value); err != nil {
		return created(), true, o11y.NewWarning("session cookie is not a session id: %w", err)
	}

	cfg.Metrics.op(opLoad)
	rec, err := store.Load(ctx, cookie.Value)
	if err != nil {
		cfg.Metrics.failed(opLoad)
		return nil, true, err
	}
	if rec == nil {
		return created(), true, nil
	}
	span.AddRawField("session.created", false)
	return fromRecord(rec), true, nil
}

func commit(ctx context.Context, store Store, cfg Config, s *Session, hadCookie bool, h http.Header) (err error) {
	ctx, span := o11y.StartSpan(ctx, "session: commit")
	defer o11y.End(span, &err)
	span.RecordMetric(o11y.Timing("session.commit", "result", "session.action"))

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.flushed:
		span.AddRawField("session.action", "delete")
		if s.loaded {
			cfg.Metrics.op(opDelete)
			if err := store.Delete(ctx, s.id); err != nil {
				cfg.Metrics.failed(opDelete)
				return err
			}
		}
		if hadCookie {
			http.SetCookie(responseHeader{h}, cfg.cookie("", -1))
		}
		return nil

	case s.modified, s.loaded && cfg.Expiry.refreshes():
		span.AddRawField("session.action", "save")
		r := s.record()
		r.ExpiresAt = cfg.Expiry.expiresAt(time.Now())
		cfg.Metrics.op(opSave)
		if err := store.Save(ctx, r); err != nil {
			cfg.Metrics.failed(opSave)
			return err
		}
		s.loaded = true
		s.modified = false
		http.SetCookie(responseHeader{h}, cfg.cookie(s.id, cfg.Expiry.maxAge()))

	default:
		span.AddRawField("session.action", "none")
	}
	return nil
}

// responseHeader lets http.SetCookie write to a bare header map.
type responseHeader struct {
	h http.Header
}

func (r responseHeader) Header() http.Header         { return r.h }
func (r responseHeader) Write(b []byte) (int, error) { return len(b), nil }
func (r responseHeader) WriteHeader(int)             {}

// committingWriter persists the session the first time the handler writes anything,
// while the cookie can still be set. When that fails the handler's response is
// replaced by a bare 400 and its body discarded.
type committingWriter struct {
	gin.ResponseWriter

	once   sync.Once
	err    error
	commit func() error
}

func (w *committingWriter) commitOnce() error {
	w.once.Do(func() {
		w.err = w.commit()
		if w.err != nil {
			w.ResponseWriter.WriteHeader(http.StatusBadRequest)
			w.ResponseWriter.WriteHeaderNow()
		}
	})
	return w.err
}

func (w *committingWriter) WriteHeaderNow() {
	if w.commitOnce() != nil {
		return
	}
	w.ResponseWriter.WriteHeaderNow()
}

func (w *committingWriter) Write(b []byte) (int, error) {
	if w.commitOnce() != nil {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *committingWriter) WriteString(s string) (int, error) {
	if w.commitOnce() != nil {
		return len(s), nil
	}
	return w.ResponseWriter.WriteString(s)
}

func (w *committingWriter) Flush() {
	if w.commitOnce() != nil {
		return
	}
	w.ResponseWriter.Flush()
}
