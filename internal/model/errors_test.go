package model

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestAtStage(t *testing.T) {
	err := AtStage(StageNetworkCreated, NewRemoteError("", errors.New("rejected")), false)

	assert.Equal(t, KindRemote, KindOf(err))
	assert.False(t, IsPartial(err))
	assert.Equal(t, "NetworkCreated: rejected", err.Error())

	// the innermost stage wins, partial accumulates
	err = AtStage(StageServerResourcesCreated, err, true)
	assert.True(t, IsPartial(err))
	assert.Equal(t, "NetworkCreated: rejected (state may be inconsistent, re-run to converge)", err.Error())

	plain := AtStage(StageSessionOpen, errors.New("boom"), false)
	assert.Equal(t, KindUnknown, KindOf(plain))
	assert.Equal(t, "SessionOpen: boom", plain.Error())
}

func TestErrorUnwrap(t *testing.T) {
	err := AtStage(StageVlanValidated, NewConfigurationError(ErrNoVLANSelected), false)

	assert.ErrorIs(t, err, ErrNoVLANSelected)
	assert.Equal(t, "configuration", KindOf(err).String())
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestCredentials(t *testing.T) {
	var absent *Credentials

	assert.False(t, absent.Complete())
	assert.Nil(t, absent.Redact())

	creds := &Credentials{User: "admin", Password: "secret", IP: "10.0.0.2"}
	assert.True(t, creds.Complete())
	assert.Equal(t, Redacted, creds.Redact().Password)
	assert.Equal(t, "secret", creds.Password)
}

func TestServerIdentity(t *testing.T) {
	blade := &ServerRecord{Kind: KindBlade, ChassisID: "1", Slot: "3"}
	assert.Equal(t, "1/3", blade.Identity())
	assert.Equal(t, "sys/chassis-1/blade-3", blade.PhysicalDn())

	rack := &ServerRecord{Kind: KindRack, RackID: "7"}
	assert.Equal(t, "7", rack.Identity())
	assert.Equal(t, "sys/rack-unit-7", rack.PhysicalDn())

	_, _, ok := ParseBlade("1-3")
	assert.False(t, ok)
}
