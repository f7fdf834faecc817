package rcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dPersist/lib/cache/rcache/internal"
	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
)

var retries = 5

// Client reads and writes a replicated cache through a NodeHost.
// Writes are proposed to the shard and return once they are applied. Reads are linearizable.
type Client struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
}

// NewClient creates a client for the shard. timeout bounds every single raft request.
func NewClient(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) *Client {
	return &Client{
		nh:      nh,
		shardID: shardID,
		cs:      nh.GetNoOPSession(shardID),
		timeout: timeout,
	}
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by the public methods)
// --------------------------------------------------------------------------

// write proposes a command and returns whether it was applied plus the data of the result
func (c *Client) write(cmd []byte) (bool, []byte, error) {
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		res, err := c.nh.SyncPropose(ctx, c.cs, cmd)
		cancel()

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(c.timeout / 10)
			continue
		}
		if err != nil {
			return false, nil, cacheerr.NewWithCause(cacheerr.ErrCUnknown, "propose failed", err)
		}
		if res.Value == internal.ResultCInvalid {
			return false, nil, cacheerr.NewWithDetail(cacheerr.ErrCUnknown, string(res.Data))
		}
		return Applied(res), res.Data, nil
	}
	return false, nil, cacheerr.NewWithDetail(cacheerr.ErrCResourceBusy, "shard stayed busy")
}

// read queries the state machine and converts the response into R
func read[R any](c *Client, q internal.Query) (R, error) {
	var zero R
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		res, err := c.nh.SyncRead(ctx, c.shardID, q)
		cancel()

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(c.timeout / 10)
			continue
		}
		if err != nil {
			return zero, cacheerr.Wrap(cacheerr.ErrCUnknown, "read failed", err)
		}

		casted, ok := res.(R)
		if !ok {
			return zero, cacheerr.NewWithDetail(cacheerr.ErrCUnknown,
				fmt.Sprintf("unexpected type: received %T, expected %T", res, zero))
		}
		return casted, nil
	}
	return zero, cacheerr.NewWithDetail(cacheerr.ErrCResourceBusy, "shard stayed busy")
}

// --------------------------------------------------------------------------
// Public methods
// --------------------------------------------------------------------------

// TryGet returns the value of key
func (c *Client) TryGet(key string) ([]byte, bool, error) {
	res, err := read[internal.QueryResult](c, internal.Query{Type: internal.QueryTGet, Key: key})
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Ok, nil
}

// TryAdd stores value if key is absent. It returns false if the key exists.
func (c *Client) TryAdd(key string, value []byte) (bool, error) {
	applied, _, err := c.write(AddCmd(key, value))
	return applied, err
}

// AddOrGet stores value if key is absent and returns the resident value
func (c *Client) AddOrGet(key string, value []byte) ([]byte, error) {
	applied, existing, err := c.write(AddCmd(key, value))
	if err != nil {
		return nil, err
	}
	if applied {
		return value, nil
	}
	return existing, nil
}

// AddOrReplace stores value unconditionally
func (c *Client) AddOrReplace(key string, value []byte) error {
	_, _, err := c.write(AddOrReplaceCmd(key, value))
	return err
}

// TryUpdate replaces the value of an existing key and returns the replaced value
func (c *Client) TryUpdate(key string, value []byte) ([]byte, bool, error) {
	applied, replaced, err := c.write(UpdateCmd(key, value))
	return replaced, applied, err
}

// TryRemove removes key and returns the removed value
func (c *Client) TryRemove(key string) ([]byte, bool, error) {
	applied, removed, err := c.write(RemoveCmd(key))
	return removed, applied, err
}

// Len returns the number of entries
func (c *Client) Len() (int, error) {
	return read[int](c, internal.Query{Type: internal.QueryTLen})
}

// Snapshot returns a sorted copy of all entries
func (c *Client) Snapshot() (Snapshot, error) {
	return read[Snapshot](c, internal.Query{Type: internal.QueryTSnapshot})
}
