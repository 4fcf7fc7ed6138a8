package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"heist/server/internal/geom"
	"heist/server/internal/match"
	"heist/server/internal/skills"
	"heist/server/internal/world"
)

func TestClientMessageRequest(t *testing.T) {
	cases := []struct {
		name string
		msg  ClientMessage
		want skills.Request
		ok   bool
	}{
		{"steal", ClientMessage{Type: TypeSkill, Skill: "steal", Target: "storage_2"}, skills.Steal{StorageID: "storage_2"}, true},
		{"steal without target", ClientMessage{Type: TypeSkill, Skill: "steal"}, nil, false},
		{"arrest", ClientMessage{Type: TypeSkill, Skill: "arrest", Target: "thief-1"}, skills.Arrest{TargetID: "thief-1"}, true},
		{"wall", ClientMessage{Type: TypeSkill, Skill: "build_wall"}, skills.BuildWall{}, true},
		{"unknown skill", ClientMessage{Type: TypeSkill, Skill: "teleport"}, nil, false},
		{"wrong type", ClientMessage{Type: TypeMove, Skill: "disguise"}, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.msg.Request()
			if ok != tc.ok || got != tc.want {
				t.Fatalf("expected %v/%v, got %v/%v", tc.want, tc.ok, got, ok)
			}
		})
	}
}

func TestJSONDecode(t *testing.T) {
	codec := JSONCodec{}
	msg, err := codec.Decode([]byte(`{"type":"input_move","dx":0.5,"dy":-1}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if msg.Ver != Version || msg.Direction() != (geom.Vec2{X: 0.5, Y: -1}) {
		t.Fatalf("unexpected message %+v", msg)
	}

	if _, err := codec.Decode([]byte(`{"ver":2,"type":"ping"}`)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
	if _, err := codec.Decode([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected malformed payload error")
	}
}

func TestJSONEncodeEvent(t *testing.T) {
	rect := geom.Rect{X: 1, Y: 2, Width: 14, Height: 80}
	data, err := JSONCodec{}.Encode(SkillEvent(7, skills.Event{Type: skills.EventWallPlaced, PlayerID: "thief-1", WallID: "wall_thief-1_1", Rect: &rect}))
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["type"] != "wall_placed" || decoded["tick"] != float64(7) {
		t.Fatalf("unexpected envelope %v", decoded)
	}
	if _, ok := decoded["snapshot"]; ok {
		t.Fatalf("expected empty fields omitted, got %v", decoded)
	}
	event := decoded["event"].(map[string]any)
	if event["wallId"] != "wall_thief-1_1" {
		t.Fatalf("unexpected event %v", event)
	}
}

func TestMsgpackUsesJSONFieldNames(t *testing.T) {
	codec := MsgpackCodec{}
	result := match.Result{MatchID: "m-1", Tick: 9, WinningTeam: world.TeamCop, Reason: match.ReasonTimeExpired, PayoutPerWinner: 300}
	data, err := codec.Encode(GameEnded(result))
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	var decoded map[string]any
	if err := msgpack.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid msgpack: %v", err)
	}
	if decoded["type"] != TypeGameEnded || decoded["matchId"] != "m-1" {
		t.Fatalf("unexpected envelope %v", decoded)
	}
	inner, ok := decoded["result"].(map[string]any)
	if !ok || inner["reason"] != "time_expired" || inner["winningTeam"] != "cop" {
		t.Fatalf("unexpected result %v", decoded["result"])
	}
}

func TestMsgpackDecode(t *testing.T) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(ClientMessage{Type: TypeSkill, Skill: "steal", Target: "storage_0"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := MsgpackCodec{}.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if req, ok := msg.Request(); !ok || req != (skills.Steal{StorageID: "storage_0"}) {
		t.Fatalf("unexpected request %v from %+v", req, msg)
	}
}

func TestMsgpackDecodeRejectsNonFiniteDirection(t *testing.T) {
	for _, dx := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		var buf bytes.Buffer
		payload := map[string]any{"type": TypeMove, "dx": dx, "dy": 1.0}
		if err := msgpack.NewEncoder(&buf).Encode(payload); err != nil {
			t.Fatalf("encode: %v", err)
		}
		msg, err := MsgpackCodec{}.Decode(buf.Bytes())
		if !errors.Is(err, ErrInvalidDirection) {
			t.Fatalf("dx=%v: expected ErrInvalidDirection, got %v (message %+v)", dx, err, msg)
		}
	}
}

func TestCodecByName(t *testing.T) {
	for name, want := range map[string]string{"": "json", "json": "json", "msgpack": "msgpack"} {
		codec, ok := CodecByName(name)
		if !ok || codec.Name() != want {
			t.Fatalf("CodecByName(%q): expected %s, got %v", name, want, codec)
		}
	}
	if _, ok := CodecByName("xml"); ok {
		t.Fatalf("expected unknown codec to be rejected")
	}
}
