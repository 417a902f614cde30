package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/validation"
)

type roomAPI struct {
	c *Client
}

func NewRoomAPI(c *Client) RoomAPI {
	return &roomAPI{c: c}
}

func (r *roomAPI) Create(ctx context.Context, req *CreateRoomRequest) (*Room, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var out Room
	if err := r.c.do(ctx, call{method: http.MethodPost, path: "/room/create", body: req, out: &out, authed: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *roomAPI) Join(ctx context.Context, roomName string) (*JoinRoomResponse, error) {
	req := &JoinRoomRequest{RoomName: roomName}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var out JoinRoomResponse
	if err := r.c.do(ctx, call{method: http.MethodPost, path: "/room/join", body: req, out: &out, authed: true}); err != nil {
		return nil, err
	}
	if out.Token == "" || out.LivekitHost == "" {
		return nil, errors.Newf(errors.ErrNetwork, "join %s: response without media credentials", roomName)
	}
	return &out, nil
}

func (r *roomAPI) List(ctx context.Context) ([]*UserRoom, error) {
	var out []*UserRoom
	if err := r.c.do(ctx, call{method: http.MethodGet, path: "/room/list", out: &out, authed: true}); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *roomAPI) moderate(ctx context.Context, roomID, identity, action string) error {
	if roomID == "" || identity == "" {
		return errors.New(errors.ErrValidation, "room id and identity are required")
	}
	path := "/room/" + url.PathEscape(roomID) + "/" + strings.ReplaceAll(action, "{identity}", url.PathEscape(identity))
	return r.c.do(ctx, call{method: http.MethodPost, path: path, authed: true})
}

func (r *roomAPI) Kick(ctx context.Context, roomID, identity string) error {
	return r.moderate(ctx, roomID, identity, "kick/{identity}")
}

func (r *roomAPI) Mute(ctx context.Context, roomID, identity string) error {
	return r.moderate(ctx, roomID, identity, "mute/{identity}")
}

func (r *roomAPI) DisableVideo(ctx context.Context, roomID, identity string) error {
	return r.moderate(ctx, roomID, identity, "video/{identity}/off")
}

func (r *roomAPI) BringToStage(ctx context.Context, roomID, identity string) error {
	return r.moderate(ctx, roomID, identity, "stage/{identity}/bring")
}

func (r *roomAPI) RemoveFromStage(ctx context.Context, roomID, identity string) error {
	return r.moderate(ctx, roomID, identity, "stage/{identity}/remove")
}

func (r *roomAPI) UpdateSettings(ctx context.Context, roomID string, settings *RoomSettings) error {
	if roomID == "" || settings == nil {
		return errors.New(errors.ErrValidation, "room id and settings are required")
	}
	return r.c.do(ctx, call{
		method: http.MethodPut,
		path:   "/room/" + url.PathEscape(roomID) + "/settings",
		body:   settings,
		authed: true,
	})
}
