package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/metal-toolbox/kubam/internal/model"
	"github.com/metal-toolbox/kubam/internal/store/ucsm"
)

type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// CredentialsReader returns the stored management plane credentials, nil when absent.
type CredentialsReader interface {
	Credentials(ctx context.Context) (*model.Credentials, error)
}

// Session is one authenticated connection to the management plane. It is
// owned by the call that opened it and never shared.
type Session struct {
	ID       uuid.UUID
	OpenedAt time.Time

	handle ucsm.Handle
	state  State
}

// Handle returns the management plane handle bound to the session.
func (s *Session) Handle() ucsm.Handle {
	return s.handle
}

func (s *Session) State() State {
	return s.state
}

// Manager opens and closes sessions using the stored credentials.
// Every Open authenticates afresh, sessions are not pooled.
type Manager struct {
	credentials CredentialsReader
	plane       ucsm.Plane
	logger      *logrus.Entry
}

// NewManager returns a session manager authenticating against plane.
func NewManager(credentials CredentialsReader, plane ucsm.Plane, logger *logrus.Entry) *Manager {
	return &Manager{
		credentials: credentials,
		plane:       plane,
		logger:      logger,
	}
}

// Open reads the stored credentials and logs in.
//
// A missing or incomplete credentials block is a configuration error, a
// rejected login an authentication error carrying the plane's message.
func (m *Manager) Open(ctx context.Context) (*Session, error) {
	creds, err := m.credentials.Credentials(ctx)
	if err != nil {
		return nil, model.NewConfigurationError(err)
	}

	if creds == nil {
		return nil, model.NewConfigurationError(model.ErrNotAuthenticated)
	}

	if !creds.Complete() {
		return nil, model.NewConfigurationError(model.ErrIncompleteCredentials)
	}

	return m.login(ctx, creds)
}

// Verify logs in with creds and immediately logs out.
func (m *Manager) Verify(ctx context.Context, creds *model.Credentials) error {
	if !creds.Complete() {
		return model.NewValidationError(model.ErrIncompleteCredentials)
	}

	s, err := m.login(ctx, creds)
	if err != nil {
		return err
	}

	m.Close(ctx, s)

	return nil
}

func (m *Manager) login(ctx context.Context, creds *model.Credentials) (*Session, error) {
	logger := m.logger.WithFields(logrus.Fields{"user": creds.User, "address": creds.IP})

	handle, err := m.plane.Login(ctx, creds.User, creds.Password, creds.IP)
	if err != nil {
		if re, ok := ucsm.AsRemoteError(err); ok {
			logger.WithField("code", re.Code).Warn("management plane rejected login")
			return nil, model.NewAuthenticationError(errors.New(re.Description))
		}

		logger.WithError(err).Error("management plane login failed")

		return nil, model.NewRemoteError(model.StageSessionOpen, err)
	}

	s := &Session{
		ID:       uuid.New(),
		OpenedAt: time.Now(),
		handle:   handle,
		state:    StateOpen,
	}

	logger.WithField("sessionID", s.ID.String()).Debug("session open")

	return s, nil
}

// Close logs out of the session. Closing a closed or nil session is a no-op,
// logout failures are logged and otherwise ignored.
func (m *Manager) Close(ctx context.Context, s *Session) {
	if s == nil || s.state == StateClosed {
		return
	}

	s.state = StateClosed

	logger := m.logger.WithFields(logrus.Fields{
		"sessionID": s.ID.String(),
		"duration":  time.Since(s.OpenedAt).String(),
	})

	// logout even when the caller's context is done
	if err := s.handle.Logout(context.WithoutCancel(ctx)); err != nil {
		logger.WithError(err).Warn("session logout failed")
		return
	}

	logger.Debug("session closed")
}

// WithSession opens a session, runs fn and closes the session on every exit
// path, panics included.
func (m *Manager) WithSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	s, err := m.Open(ctx)
	if err != nil {
		return err
	}
	defer m.Close(ctx, s)

	return fn(ctx, s)
}
