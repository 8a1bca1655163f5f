package errcode

import (
	"errors"
	"fmt"
	"testing"

	"porthub-go/drivers/porthub"
)

func TestOf(t *testing.T) {
	txErr := &porthub.Error{Op: "write led fill color", Reg: 0x4A, Err: errors.New("nack")}
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"code", Unsupported, Unsupported},
		{"wrapped code", fmt.Errorf("ctl: %w", InvalidPayload), InvalidPayload},
		{"E", Wrap(UnknownPort, "ctrl", "no port x", nil), UnknownPort},
		{"channel", porthub.ErrInvalidChannel, InvalidChannel},
		{"no bus", porthub.ErrNoBus, HubNotReady},
		{"transport", txErr, IOError},
		{"wrapped transport", fmt.Errorf("poll: %w", txErr), IOError},
		{"other", errors.New("boom"), Error},
	}
	for _, c := range cases {
		if got := Of(c.err); got != c.want {
			t.Fatalf("%s: got %q want %q", c.name, got, c.want)
		}
	}
}

func TestE(t *testing.T) {
	cause := errors.New("cause")
	e := Wrap(InvalidParams, "build", "duplicate port", cause)
	if e.Error() != "invalid_params: duplicate port" {
		t.Fatalf("Error(): %q", e.Error())
	}
	if !errors.Is(e, cause) {
		t.Fatal("Unwrap lost the cause")
	}
	if (&E{C: HubNotReady}).Error() != "hub_not_ready" {
		t.Fatal("bare code text")
	}
}
