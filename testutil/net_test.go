/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mockT struct {
	failed bool
}

func (t *mockT) FailNow() {
	t.failed = true
}

func (t *mockT) Errorf(string, ...interface{}) {}

func TestWaitListeningServer(t *testing.T) {
	addr := GetLocalAddrWithFreeTCPPort()
	require.Error(t, WaitListeningServer(addr, 30*time.Millisecond))

	listener, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()
	require.NoError(t, WaitListeningServer(addr, time.Second))
}

func TestRequireNoErrorInChannel(t *testing.T) {
	errs := make(chan error, 1)
	RequireNoErrorInChannel(t, errs)

	mt := &mockT{}
	errs <- errors.New("listen tcp: address already in use")
	RequireNoErrorInChannel(mt, errs)
	require.True(t, mt.failed)
}
