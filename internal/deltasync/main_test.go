package deltasync

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// keep-alive connections to the fake API wind down asynchronously
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}
