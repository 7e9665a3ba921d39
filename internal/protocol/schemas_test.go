package protocol_test

import (
	"testing"

	"github.com/notdash999-netizen/simple-clans-mod/internal/protocol"
)

const (
	idA = "6f1c2d3e-4a5b-4c6d-8e7f-001122334455"
	idB = "0a0b0c0d-1e1f-4a2b-9c3d-66778899aabb"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	good := map[string]string{
		protocol.TypeHello:    `{"type":"HELLO","protocol_version":"1.0","server_name":"survival-1"}`,
		protocol.TypePresence: `{"type":"PRESENCE","full":true,"players":[{"id":"` + idA + `","name":"Grom","world":"overworld","x":1.5,"y":64,"z":-3,"gold":100,"netherite":2}]}`,
		protocol.TypeGone:     `{"type":"GONE","player":"` + idA + `"}`,
		protocol.TypeCmd:      `{"type":"CMD","req_id":"r1","player":"` + idA + `","name":"create","args":["Orcs"]}`,
		protocol.TypeAttack:   `{"type":"ATTACK","req_id":"r2","attacker":"` + idA + `","victim":"` + idB + `"}`,
		protocol.TypeDeath:    `{"type":"DEATH","victim":"` + idB + `","last_attacker":""}`,
	}
	for typ, raw := range good {
		if err := v.Validate(typ, []byte(raw)); err != nil {
			t.Fatalf("%s: validate: %v", typ, err)
		}
	}
}

func TestSchemas_RejectBadFrames(t *testing.T) {
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	cases := []struct {
		typ string
		raw string
	}{
		{protocol.TypeHello, `{"type":"HELLO","protocol_version":"1.0"}`},
		{protocol.TypeCmd, `{"type":"CMD","req_id":"r1","player":"nope","name":"create"}`},
		{protocol.TypePresence, `{"type":"PRESENCE","players":[{"id":"` + idA + `","name":"x","world":"w","x":0,"y":0,"z":0,"gold":-1}]}`},
		{protocol.TypeAttack, `{"type":"DEATH","req_id":"r","attacker":"` + idA + `","victim":"` + idB + `"}`},
		{"OBS", `{"type":"OBS"}`},
		{protocol.TypeGone, `{not json`},
	}
	for _, c := range cases {
		if err := v.Validate(c.typ, []byte(c.raw)); err == nil {
			t.Fatalf("%s %s: expected rejection", c.typ, c.raw)
		}
	}
}
