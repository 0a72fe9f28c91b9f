package stores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	cst "verdant.io/feed/constants"
	"verdant.io/feed/kv"
	md "verdant.io/feed/models"
)

func TestSettingsStore_LoadDefaultsWhenUnset(t *testing.T) {
	s := &KVSettingsStore{KV: kv.NewMemStore()}
	got, err := s.Load()
	assert.Nil(t, err)
	assert.Equal(t, md.DefaultSettings(), got)
}

func TestSettingsStore_SaveThenLoad(t *testing.T) {
	s := &KVSettingsStore{KV: kv.NewMemStore()}
	in := md.DefaultSettings()
	in.Theme = "dark"
	in.AutoPlayVideos = true

	assert.Nil(t, s.Save(in))
	got, err := s.Load()
	assert.Nil(t, err)
	assert.Equal(t, in, got)
}

func TestSettingsStore_CorruptDocumentFallsBackToDefaults(t *testing.T) {
	mem := kv.NewMemStore()
	mem.SetRaw(cst.KeyUserSettings, []byte(`"junk`))
	s := &KVSettingsStore{KV: mem}

	got, err := s.Load()
	assert.Nil(t, err)
	assert.Equal(t, md.DefaultSettings(), got)
}
