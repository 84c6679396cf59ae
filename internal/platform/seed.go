package platform

import (
	"context"
	_ "embed"
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	s "github.com/jlym/memorywall/internal/server"
	"github.com/jlym/memorywall/internal/storage"
)

//go:embed seed.yaml
var seedYAML []byte

// SeedData is the reference dataset a fresh medium starts with.
type SeedData struct {
	Users    map[string]*s.User      `json:"users"`
	Posts    []*s.Post               `json:"posts"`
	Channels map[string][]*s.Message `json:"channels"`
	Events   []*s.Event              `json:"events"`
	Skills   []*s.Skill              `json:"skills"`
}

// LoadSeed decodes the embedded dataset. The YAML is converted to JSON first
// so the records decode through the same json tags the store uses.
func LoadSeed() (*SeedData, error) {
	var doc interface{}
	if err := yaml.Unmarshal(seedYAML, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing seed yaml failed")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "converting seed to json failed")
	}

	data := &SeedData{}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, errors.Wrap(err, "decoding seed failed")
	}
	for channelID, messages := range data.Channels {
		for _, m := range messages {
			m.ChannelID = channelID
		}
	}
	return data, nil
}

// Seed writes the reference dataset unless the seeded flag is already set,
// then sets it. It reports whether anything was written.
func (p *Platform) Seed(ctx context.Context) (bool, error) {
	defer p.lockWrites()()

	if storage.Get(ctx, p.Store, storage.KeySeeded, false) {
		return false, nil
	}

	data, err := LoadSeed()
	if err != nil {
		return false, err
	}

	p.Store.Set(ctx, storage.KeyUsers, data.Users)
	p.Store.Set(ctx, storage.KeyPosts, data.Posts)
	p.Store.Set(ctx, storage.KeyChannels, data.Channels)
	p.Store.Set(ctx, storage.KeyEvents, data.Events)
	p.Store.Set(ctx, storage.KeySkills, data.Skills)
	p.Store.Set(ctx, storage.KeyFlagged, []*s.FlagRecord{})
	p.Store.Set(ctx, storage.KeySeeded, true)

	p.Logger.Info("seeded medium",
		zap.Int("users", len(data.Users)),
		zap.Int("posts", len(data.Posts)),
		zap.Int("events", len(data.Events)),
		zap.Int("skills", len(data.Skills)))
	return true, nil
}
