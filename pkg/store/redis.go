package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/aggnsa/aggnsa/pkg/statemachine"
	"github.com/aggnsa/aggnsa/pkg/topology"
	"github.com/aggnsa/aggnsa/pkg/util"
)

// casScript atomically advances a single hash field iff it still equals the
// caller's expected value, the same holder-check idiom the broker's device
// lock uses: read, compare, write, all inside one script so no other client
// can observe or act on the intermediate state. Returns 1 on success, 0 on
// mismatch, -1 if the hash (or the field) doesn't exist yet.
var casScript = redis.NewScript(`
local key = KEYS[1]
local field = ARGV[1]
local from = ARGV[2]
local to = ARGV[3]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local current = redis.call("HGET", key, field)
if current == false then
	return -1
end
if current ~= from then
	return 0
end
redis.call("HSET", key, field, to)
return 1
`)

// RedisStore persists connections and sub-connections in Redis, following
// the key layout spec.md §3 describes: one hash per connection
// (conn:{connection_id}), one hash per leg (subconn:{parent_id}:{order_id})
// plus an order list for parent→children navigation, and a global set
// (connid:index) used only to detect id collisions.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing *redis.Client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func connKey(connectionID string) string {
	return "conn:" + connectionID
}

func subHashKey(parentID string, orderID int) string {
	return fmt.Sprintf("subconn:%s:%d", parentID, orderID)
}

func subOrderKey(parentID string) string {
	return "subconn:" + parentID + ":order"
}

const connIDIndexKey = "connid:index"

func (r *RedisStore) CreateConnection(ctx context.Context, conn *ServiceConnection) error {
	key := connKey(conn.ConnectionID)

	added, err := r.client.SAdd(ctx, connIDIndexKey, conn.ConnectionID).Result()
	if err != nil {
		return fmt.Errorf("store: indexing connection id: %w", err)
	}
	if added == 0 {
		return util.NewConnectionExistsError(conn.ConnectionID)
	}

	fields, err := connectionToHash(conn)
	if err != nil {
		return fmt.Errorf("store: encoding connection %s: %w", conn.ConnectionID, err)
	}
	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("store: creating connection %s: %w", conn.ConnectionID, err)
	}
	return nil
}

func (r *RedisStore) GetConnection(ctx context.Context, connectionID string) (*ServiceConnection, error) {
	vals, err := r.client.HGetAll(ctx, connKey(connectionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: reading connection %s: %w", connectionID, err)
	}
	if len(vals) == 0 {
		return nil, newNotFoundError("connection", connectionID)
	}
	return connectionFromHash(connectionID, vals)
}

func (r *RedisStore) ConnectionIDExists(ctx context.Context, connectionID string) (bool, error) {
	n, err := r.client.SIsMember(ctx, connIDIndexKey, connectionID).Result()
	if err != nil {
		return false, fmt.Errorf("store: checking connection id %s: %w", connectionID, err)
	}
	return n, nil
}

func (r *RedisStore) BumpRevision(ctx context.Context, connectionID string) (int, error) {
	key := connKey(connectionID)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("store: checking connection %s: %w", connectionID, err)
	}
	if exists == 0 {
		return 0, newNotFoundError("connection", connectionID)
	}
	n, err := r.client.HIncrBy(ctx, key, "revision", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("store: bumping revision for %s: %w", connectionID, err)
	}
	return int(n), nil
}

func (r *RedisStore) CASConnectionState(ctx context.Context, connectionID string, axis statemachine.Axis, from, to statemachine.State) error {
	return r.cas(ctx, connKey(connectionID), "connection", connectionID, axis, from, to)
}

func (r *RedisStore) CreateSubConnection(ctx context.Context, sub *SubConnection) error {
	key := subHashKey(sub.ParentID, sub.OrderID)
	fields, err := subConnectionToHash(sub)
	if err != nil {
		return fmt.Errorf("store: encoding subconnection %s: %w", key, err)
	}
	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("store: creating subconnection %s: %w", key, err)
	}
	if err := r.client.RPush(ctx, subOrderKey(sub.ParentID), sub.OrderID).Err(); err != nil {
		return fmt.Errorf("store: recording order for %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) GetSubConnection(ctx context.Context, parentID string, orderID int) (*SubConnection, error) {
	key := subHashKey(parentID, orderID)
	vals, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("store: reading subconnection %s: %w", key, err)
	}
	if len(vals) == 0 {
		return nil, newNotFoundError("subconnection", subKey(parentID, orderID))
	}
	return subConnectionFromHash(parentID, orderID, vals)
}

func (r *RedisStore) ListSubConnections(ctx context.Context, parentID string) ([]*SubConnection, error) {
	raw, err := r.client.LRange(ctx, subOrderKey(parentID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: listing order for %s: %w", parentID, err)
	}

	out := make([]*SubConnection, 0, len(raw))
	for _, s := range raw {
		orderID, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		sub, err := r.GetSubConnection(ctx, parentID, orderID)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func (r *RedisStore) CASSubConnectionState(ctx context.Context, parentID string, orderID int, axis statemachine.Axis, from, to statemachine.State) error {
	key := subHashKey(parentID, orderID)
	return r.cas(ctx, key, "subconnection", subKey(parentID, orderID), axis, from, to)
}

func (r *RedisStore) cas(ctx context.Context, key, kind, id string, axis statemachine.Axis, from, to statemachine.State) error {
	field := axisField(axis)

	result, err := casScript.Run(ctx, r.client, []string{key}, field, string(from), string(to)).Int()
	if err != nil {
		return fmt.Errorf("store: %s axis CAS for %s %s: %w", axis, kind, id, err)
	}

	switch result {
	case 1:
		return nil
	case 0:
		current, getErr := r.client.HGet(ctx, key, field).Result()
		if getErr != nil {
			current = "?"
		}
		return newCASConflictError(string(axis), string(from), current)
	default: // -1
		return newNotFoundError(kind, id)
	}
}

func axisField(axis statemachine.Axis) string {
	return string(axis) + "_state"
}

func connectionToHash(c *ServiceConnection) (map[string]interface{}, error) {
	src, err := json.Marshal(c.Source)
	if err != nil {
		return nil, err
	}
	dst, err := json.Marshal(c.Dest)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"connection_id":         c.ConnectionID,
		"revision":              c.Revision,
		"global_reservation_id": c.GlobalReservationID,
		"description":           c.Description,
		"requester_identity":    c.RequesterIdentity,
		"requester_reference":   c.RequesterReference,
		"reserve_time":          timeToField(c.ReserveTime),
		"reservation_state":     string(c.ReservationState),
		"provision_state":       string(c.ProvisionState),
		"activation_state":      string(c.ActivationState),
		"lifecycle_state":       string(c.LifecycleState),
		"source_stp":            string(src),
		"dest_stp":              string(dst),
		"start_time":            timeToField(c.StartTime),
		"end_time":              timeToField(c.EndTime),
		"bandwidth":             c.Bandwidth,
	}, nil
}

func connectionFromHash(connectionID string, vals map[string]string) (*ServiceConnection, error) {
	var src, dst topology.STP
	if err := json.Unmarshal([]byte(vals["source_stp"]), &src); err != nil {
		return nil, fmt.Errorf("store: decoding source STP for %s: %w", connectionID, err)
	}
	if err := json.Unmarshal([]byte(vals["dest_stp"]), &dst); err != nil {
		return nil, fmt.Errorf("store: decoding dest STP for %s: %w", connectionID, err)
	}

	revision, _ := strconv.Atoi(vals["revision"])
	bandwidth, _ := strconv.ParseInt(vals["bandwidth"], 10, 64)

	return &ServiceConnection{
		ConnectionID:         connectionID,
		Revision:             revision,
		GlobalReservationID:  vals["global_reservation_id"],
		Description:          vals["description"],
		RequesterIdentity:    vals["requester_identity"],
		RequesterReference:   vals["requester_reference"],
		ReserveTime:          fieldToTime(vals["reserve_time"]),
		ReservationState:     statemachine.State(vals["reservation_state"]),
		ProvisionState:       statemachine.State(vals["provision_state"]),
		ActivationState:      statemachine.State(vals["activation_state"]),
		LifecycleState:       statemachine.State(vals["lifecycle_state"]),
		Source:               src,
		Dest:                 dst,
		StartTime:            fieldToTime(vals["start_time"]),
		EndTime:              fieldToTime(vals["end_time"]),
		Bandwidth:            bandwidth,
	}, nil
}

func subConnectionToHash(s *SubConnection) (map[string]interface{}, error) {
	src, err := json.Marshal(s.Source)
	if err != nil {
		return nil, err
	}
	dst, err := json.Marshal(s.Dest)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"parent_id":         s.ParentID,
		"order_id":          s.OrderID,
		"provider_nsa":      s.ProviderNSA,
		"local_link":        boolToField(s.LocalLink),
		"connection_id":     s.ConnectionID,
		"reservation_state": string(s.ReservationState),
		"provision_state":   string(s.ProvisionState),
		"activation_state":  string(s.ActivationState),
		"lifecycle_state":   string(s.LifecycleState),
		"source_stp":        string(src),
		"dest_stp":          string(dst),
		"start_time":        timeToField(s.StartTime),
		"end_time":          timeToField(s.EndTime),
		"bandwidth":         s.Bandwidth,
	}, nil
}

func subConnectionFromHash(parentID string, orderID int, vals map[string]string) (*SubConnection, error) {
	var src, dst topology.STP
	key := subKey(parentID, orderID)
	if err := json.Unmarshal([]byte(vals["source_stp"]), &src); err != nil {
		return nil, fmt.Errorf("store: decoding source STP for %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(vals["dest_stp"]), &dst); err != nil {
		return nil, fmt.Errorf("store: decoding dest STP for %s: %w", key, err)
	}

	bandwidth, _ := strconv.ParseInt(vals["bandwidth"], 10, 64)

	return &SubConnection{
		ParentID:          parentID,
		OrderID:           orderID,
		ProviderNSA:       vals["provider_nsa"],
		LocalLink:         vals["local_link"] == "1",
		ConnectionID:      vals["connection_id"],
		ReservationState:  statemachine.State(vals["reservation_state"]),
		ProvisionState:    statemachine.State(vals["provision_state"]),
		ActivationState:   statemachine.State(vals["activation_state"]),
		LifecycleState:    statemachine.State(vals["lifecycle_state"]),
		Source:            src,
		Dest:               dst,
		StartTime:          fieldToTime(vals["start_time"]),
		EndTime:            fieldToTime(vals["end_time"]),
		Bandwidth:          bandwidth,
	}, nil
}

func boolToField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func timeToField(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

func fieldToTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
