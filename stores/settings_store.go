package stores

import (
	log "github.com/sirupsen/logrus"
	cst "verdant.io/feed/constants"
	fe "verdant.io/feed/errors"
	"verdant.io/feed/kv"
	md "verdant.io/feed/models"
)

// SettingsStore vends the single user-preferences document. Load falls back
// to defaults when nothing was ever saved; Save replaces the document
// wholesale, there is no per-field update path.
type SettingsStore interface {
	Load() (md.Settings, *fe.FeedErr)
	Save(s md.Settings) *fe.FeedErr
}

type KVSettingsStore struct {
	KV kv.Store
}

func (s *KVSettingsStore) Load() (md.Settings, *fe.FeedErr) {
	settings := md.DefaultSettings()
	if _, err := s.KV.Get(cst.KeyUserSettings, &settings); err != nil {
		return md.DefaultSettings(), err
	}
	return settings, nil
}

func (s *KVSettingsStore) Save(settings md.Settings) *fe.FeedErr {
	if err := s.KV.Set(cst.KeyUserSettings, settings); err != nil {
		log.WithError(err).Error("error saving user settings")
		return err
	}
	return nil
}
