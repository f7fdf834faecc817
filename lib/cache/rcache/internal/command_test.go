package internal

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// TestSizeBytes tests the SizeBytes method
func TestSizeBytes(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected int
	}{
		{
			name:     "Command with key and value",
			command:  Command{Type: CommandTAdd, Key: "testkey", Value: []byte("testvalue")},
			expected: 1 + 4 + 7 + 9,
		},
		{
			name:     "Command with empty key",
			command:  Command{Type: CommandTAddOrReplace, Value: []byte("testvalue")},
			expected: 1 + 4 + 0 + 9,
		},
		{
			name:     "Remove command without value",
			command:  Command{Type: CommandTRemove, Key: "k"},
			expected: 1 + 4 + 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if size := tt.command.SizeBytes(); size != tt.expected {
				t.Errorf("SizeBytes() = %v, want %v", size, tt.expected)
			}
		})
	}
}

// TestSerializeDeserialize tests both Serialize and Deserialize methods
func TestSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{"Add with value", Command{Type: CommandTAdd, Key: "testkey", Value: []byte("testvalue")}},
		{"Update with binary value", Command{Type: CommandTUpdate, Key: "k", Value: []byte{0, 1, 2, 255}}},
		{"Remove without value", Command{Type: CommandTRemove, Key: "gone"}},
		{"Unicode key", Command{Type: CommandTAddOrReplace, Key: "schlüssel", Value: []byte("v")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.command.Serialize()
			if len(data) != tt.command.SizeBytes() {
				t.Fatalf("Serialize() produced %d bytes, want %d", len(data), tt.command.SizeBytes())
			}
			if CommandType(data[0]) != tt.command.Type {
				t.Errorf("type byte = %d, want %d", data[0], tt.command.Type)
			}
			if keyLen := binary.BigEndian.Uint32(data[1:5]); int(keyLen) != len(tt.command.Key) {
				t.Errorf("key length = %d, want %d", keyLen, len(tt.command.Key))
			}

			var got Command
			if err := got.Deserialize(data); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}
			if got.Type != tt.command.Type || got.Key != tt.command.Key || !bytes.Equal(got.Value, tt.command.Value) {
				t.Errorf("Deserialize() = %+v, want %+v", got, tt.command)
			}
		})
	}
}

// TestDeserializeErrors tests malformed input
func TestDeserializeErrors(t *testing.T) {
	var c Command
	if err := c.Deserialize([]byte{0, 0}); err == nil {
		t.Error("expected error for short header")
	}
	if err := c.Deserialize([]byte{0, 0, 0, 0, 9, 'a'}); err == nil {
		t.Error("expected error for truncated key")
	}
}

// TestBufferReuse checks that a decoded value does not alias the input buffer
func TestBufferReuse(t *testing.T) {
	data := (&Command{Type: CommandTAdd, Key: "k", Value: []byte("abc")}).Serialize()
	var c Command
	if err := c.Deserialize(data); err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] = 'X'
	if string(c.Value) != "abc" {
		t.Errorf("value aliases input buffer: %q", c.Value)
	}
}
