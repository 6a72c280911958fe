package peer

import (
	"time"

	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/topology"
)

// wireRequest is registry.Request's over-the-wire shape. It exists as its
// own type (rather than sending registry.Request directly) so the wire
// format doesn't silently change the day someone adds an in-process-only
// field to Request.
type wireRequest struct {
	RequesterIdentity   string            `json:"requester_identity"`
	ProviderIdentity    string            `json:"provider_identity"`
	SecurityAttrs       map[string]string `json:"security_attrs,omitempty"`
	ConnectionID        string            `json:"connection_id"`
	GlobalReservationID string            `json:"global_reservation_id,omitempty"`
	Description         string            `json:"description,omitempty"`
	OrderID             int               `json:"order_id"`
	Source              topology.STP      `json:"source"`
	Dest                topology.STP      `json:"dest"`
	StartTime           time.Time         `json:"start_time,omitempty"`
	EndTime             time.Time         `json:"end_time,omitempty"`
	Bandwidth           int64             `json:"bandwidth"`
	Directionality      string            `json:"directionality,omitempty"`
}

func toWireRequest(req registry.Request) *wireRequest {
	return &wireRequest{
		RequesterIdentity:   req.RequesterIdentity,
		ProviderIdentity:    req.ProviderIdentity,
		SecurityAttrs:       req.SecurityAttrs,
		ConnectionID:        req.ConnectionID,
		GlobalReservationID: req.GlobalReservationID,
		Description:         req.Description,
		OrderID:             req.OrderID,
		Source:              req.Source,
		Dest:                req.Dest,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		Bandwidth:           req.Bandwidth,
		Directionality:      req.Directionality,
	}
}

func (w *wireRequest) toRequest() registry.Request {
	return registry.Request{
		RequesterIdentity:   w.RequesterIdentity,
		ProviderIdentity:    w.ProviderIdentity,
		SecurityAttrs:       w.SecurityAttrs,
		ConnectionID:        w.ConnectionID,
		GlobalReservationID: w.GlobalReservationID,
		Description:         w.Description,
		OrderID:             w.OrderID,
		Source:              w.Source,
		Dest:                w.Dest,
		StartTime:           w.StartTime,
		EndTime:             w.EndTime,
		Bandwidth:           w.Bandwidth,
		Directionality:      w.Directionality,
	}
}

// wireResponse is registry.Response's over-the-wire shape, plus an Error
// string: a peer's failure is still a successful RPC at the transport
// level, carrying a non-empty Error the client turns back into a Go error
// (spec.md §4.5 treats a leg failure as data, not a transport fault).
type wireResponse struct {
	ConnectionID        string `json:"connection_id,omitempty"`
	GlobalReservationID string `json:"global_reservation_id,omitempty"`
	Description         string `json:"description,omitempty"`
	Error               string `json:"error,omitempty"`
}

func toWireResponse(resp registry.Response, err error) *wireResponse {
	w := &wireResponse{
		ConnectionID:        resp.ConnectionID,
		GlobalReservationID: resp.GlobalReservationID,
		Description:         resp.Description,
	}
	if err != nil {
		w.Error = err.Error()
	}
	return w
}

func (w *wireResponse) toResponse() (registry.Response, error) {
	resp := registry.Response{
		ConnectionID:        w.ConnectionID,
		GlobalReservationID: w.GlobalReservationID,
		Description:         w.Description,
	}
	if w.Error != "" {
		return resp, newRemoteError(w.Error)
	}
	return resp, nil
}

// methodForEvent returns the gRPC full method name ("/service/method") used
// for one Event, the same name both Client.Invoke and Server's ServiceDesc
// must agree on.
func methodForEvent(event registry.Event) string {
	return "/aggnsa.peer.v1.Aggregator/" + string(event)
}
