package store

import (
	"context"

	"github.com/imtaco/bedrud-client/instances"
	"github.com/imtaco/bedrud-client/internal/log"
)

// Keys written by single-server releases.
const (
	legacyServerURL    = "server_url"
	legacyAccessToken  = "access_token"
	legacyRefreshToken = "refresh_token"
	legacyUserData     = "user_data"

	legacyDefaultServer = "https://bedrud.com"
)

// migrateLegacy turns a single-server session into the first instance. It
// only runs when no instance list was ever persisted, and drops the legacy
// keys once copied.
func (s *storeImpl) migrateLegacy(ctx context.Context) (registry, bool) {
	access, ok := s.kv.GetString(ctx, legacyAccessToken)
	if !ok {
		return registry{}, false
	}

	serverURL, ok := s.kv.GetString(ctx, legacyServerURL)
	if !ok {
		serverURL = legacyDefaultServer
	}
	inst := instances.New(serverURL, hostOf(serverURL), s.clock)
	reg := registry{list: []*instances.Instance{inst}, active: inst.ID}

	if err := s.persist(ctx, reg); err != nil {
		s.logger.Warn("legacy migration aborted", log.Error(err))
		return registry{}, false
	}

	moves := map[string]string{
		instances.AccessTokenKey(inst.ID): access,
	}
	if v, ok := s.kv.GetString(ctx, legacyRefreshToken); ok {
		moves[instances.RefreshTokenKey(inst.ID)] = v
	}
	if v, ok := s.kv.GetString(ctx, legacyUserData); ok {
		moves[instances.UserDataKey(inst.ID)] = v
	}
	for key, v := range moves {
		if err := s.kv.SetString(ctx, key, v); err != nil {
			s.logger.Warn("copy legacy session key", log.String("key", key), log.Error(err))
		}
	}
	for _, key := range []string{legacyServerURL, legacyAccessToken, legacyRefreshToken, legacyUserData} {
		if err := s.kv.Remove(ctx, key); err != nil {
			s.logger.Warn("drop legacy key", log.String("key", key), log.Error(err))
		}
	}

	s.logger.Info("migrated legacy session", log.Instance(inst.ID), log.String("server_url", serverURL))
	return reg, true
}
