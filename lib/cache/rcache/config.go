package rcache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/ValentinKolb/dPersist/lib/serializer"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/config"
)

// Dragonboat uses RTT (Round Trip Time) to determine the timing of elections and heartbeats.
// These default values are selected according to the RAFT Paper
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ReplicaConfig holds the parameters of one replica of a replicated cache
type ReplicaConfig struct {
	ShardID   uint64
	ReplicaID uint64

	// Members maps every replica id of the shard to its raft address
	Members map[uint64]string
	// Join starts the replica as a new member of a running shard
	Join bool

	// Dragonboat parameters
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	DataDir            string
}

// Validate checks that the replica can be started
func (c *ReplicaConfig) Validate() error {
	if c.DataDir == "" {
		return cacheerr.NewWithDetail(cacheerr.ErrCConfig, "data dir is required")
	}
	if c.RTTMillisecond == 0 {
		return cacheerr.NewWithDetail(cacheerr.ErrCConfig, "rtt must be positive")
	}
	if _, ok := c.Members[c.ReplicaID]; !ok {
		return cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("replica %d has no address in members", c.ReplicaID))
	}
	return nil
}

// ToDragonboatConfig converts the ReplicaConfig to Dragonboat Config
func (c *ReplicaConfig) ToDragonboatConfig() config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            c.ShardID,
		ElectionRTT:        electionRTTFactor,
		HeartbeatRTT:       heartbeatRTTFactor,
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *ReplicaConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         c.DataDir,
		NodeHostDir:    c.DataDir,
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.Members[c.ReplicaID],
	}
}

// String returns a formatted string representation of the configuration
func (c *ReplicaConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Node Identity")
	addField("Shard ID", strconv.FormatUint(c.ShardID, 10))
	addField("Replica ID", strconv.FormatUint(c.ReplicaID, 10))
	addField("RAFT Address", c.Members[c.ReplicaID])

	addSection("RAFT Parameters")
	addField("Round Trip Time (ms)", fmt.Sprintf("%d ms", c.RTTMillisecond))
	addField("Election RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*electionRTTFactor))
	addField("Heartbeat RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*heartbeatRTTFactor))
	addField("Snapshot Entries", fmt.Sprintf("%d", c.SnapshotEntries))
	addField("Compaction Overhead", fmt.Sprintf("%d", c.CompactionOverhead))
	addField("Data Directory", c.DataDir)

	addSection("Members")
	ids := make([]uint64, 0, len(c.Members))
	for id := range c.Members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		addField(strconv.FormatUint(id, 10), c.Members[id])
	}

	return sb.String()
}

// StartReplica creates a NodeHost and starts the cache state machine on it.
// Snapshots of the replica are written with format and opts. The caller owns the returned NodeHost.
func StartReplica(c ReplicaConfig, format serializer.Format, opts ...serializer.Option) (*dragonboat.NodeHost, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	nh, err := dragonboat.NewNodeHost(c.ToNodeHostConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create node host: %w", err)
	}
	members := c.Members
	if c.Join {
		members = nil
	}
	if err := nh.StartConcurrentReplica(members, c.Join, CreateStateMachineFactory(format, opts...), c.ToDragonboatConfig()); err != nil {
		nh.Close()
		return nil, fmt.Errorf("failed to start replica %d of shard %d: %w", c.ReplicaID, c.ShardID, err)
	}
	log.Infof("started replica %d of shard %d at %s", c.ReplicaID, c.ShardID, c.Members[c.ReplicaID])
	return nh, nil
}
