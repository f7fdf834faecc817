package internal

import (
	"encoding/binary"
	"fmt"
)

// CommandType defines the possible write operations of the cache state machine.
type CommandType uint8

const (
	CommandTAdd          CommandType = iota // Insert an entry if the key is absent.
	CommandTAddOrReplace                    // Insert or replace an entry.
	CommandTUpdate                          // Replace the value of an existing entry.
	CommandTRemove                          // Remove an entry.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTAdd:
		return "Add"
	case CommandTAddOrReplace:
		return "AddOrReplace"
	case CommandTUpdate:
		return "Update"
	case CommandTRemove:
		return "Remove"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// headerSize is Type + KeyLen
const headerSize = 1 + 4

// Command is a single entry in the raft log
type Command struct {
	Type  CommandType
	Key   string
	Value []byte
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	return headerSize + len(command.Key) + len(command.Value)
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 4 bytes for key length (big endian),
// N bytes for key data,
// N bytes for value data (optional)
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())
	result[0] = byte(command.Type)
	binary.BigEndian.PutUint32(result[1:headerSize], uint32(len(command.Key)))
	n := copy(result[headerSize:], command.Key)
	copy(result[headerSize+n:], command.Value)
	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}
	command.Type = CommandType(data[0])

	keyLen := int(binary.BigEndian.Uint32(data[1:headerSize]))
	if len(data) < headerSize+keyLen {
		return fmt.Errorf("data too short for key of length %d", keyLen)
	}
	command.Key = string(data[headerSize : headerSize+keyLen])

	if rest := data[headerSize+keyLen:]; len(rest) > 0 {
		command.Value = append(command.Value[:0], rest...)
	} else {
		command.Value = nil
	}
	return nil
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// QueryType defines the read-only operations of the state machine
type QueryType uint8

const (
	QueryTGet      QueryType = iota // Value of a single key, answered with a QueryResult.
	QueryTLen                       // Number of entries, answered with an int.
	QueryTSnapshot                  // Sorted copy of all entries, answered with a cache.Snapshot.
)

func (qt QueryType) String() string {
	switch qt {
	case QueryTGet:
		return "Get"
	case QueryTLen:
		return "Len"
	case QueryTSnapshot:
		return "Snapshot"
	default:
		return fmt.Sprintf("Unknown(%d)", qt)
	}
}

// Query is a read-only lookup request sent via SyncRead or StaleRead
type Query struct {
	Type QueryType
	Key  string
}

// QueryResult is the result of a Query
type QueryResult struct {
	Ok    bool
	Value []byte
}

// --------------------------------------------------------------------------
// Results
// --------------------------------------------------------------------------

const (
	ResultCApplied  uint64 = iota // 0: the command changed the cache
	ResultCRejected               // 1: the command was valid but had no effect (e.g. add of an existing key)
	ResultCInvalid                // 2: the command could not be decoded
)
