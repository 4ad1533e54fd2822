package server

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/MrWong99/valisia/pkg/provider/tts"
)

// defaultWelcomeMessage explains the rules. Spoken once per server lifetime
// unless synthesis fails.
const defaultWelcomeMessage = `Hello! Let's play "I'm packing my suitcase". ` +
	`I'll start by saying an item, then you repeat my item and add your own. ` +
	`For example, if I say: "I'm packing my suitcase and in it I have a shirt", ` +
	`you would say: "I'm packing my suitcase and in it I have a shirt and..." then add your own item. ` +
	`Ready? You can start by saying what you are packing first.`

// welcomeCache synthesizes the greeting once and serves the bytes from memory
// afterwards. Concurrent first calls are collapsed into a single synthesis
// via singleflight; a failed synthesis is not cached, so the next request
// retries.
type welcomeCache struct {
	synth tts.Provider
	text  string

	group singleflight.Group
	audio []byte
}

func newWelcomeCache(synth tts.Provider) *welcomeCache {
	return &welcomeCache{
		synth: synth,
		text:  defaultWelcomeMessage,
	}
}

// get returns the greeting audio, synthesizing it on first use.
func (c *welcomeCache) get(ctx context.Context) ([]byte, error) {
	v, err, _ := c.group.Do("welcome", func() (any, error) {
		if c.audio != nil {
			return c.audio, nil
		}
		audio, err := c.synth.Synthesize(ctx, c.text)
		if err != nil {
			return nil, err
		}
		c.audio = audio
		return audio, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
