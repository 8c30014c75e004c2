package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"matatu-server/internal/util"
)

func TestInstance(t *testing.T) {
	clear1 := util.SetEnv("MATATU_CONFIG_FILE", "testdata/config.yaml")
	defer clear1()
	clear2 := util.SetEnv("MATATU_JWT_PRIVATE_KEY", "private2.key")
	defer clear2()

	a := assert.New(t)
	a.NoError(Load())
	cfg := Instance()
	a.Equal("postgres://localhost:5432/matatu?sslmode=disable", cfg.PGDSN)
	a.Equal("public.pem", cfg.JWT.PublicKey)
	a.Equal("private2.key", cfg.JWT.PrivateKey)
	a.Equal(time.Second*5, cfg.StartDelay())
	a.Equal(time.Second*30, cfg.DisconnectGrace())

	// ensure that it's only loaded once
	_ = os.Setenv("MATATU_JWT_PRIVATE_KEY", "private3.key")
	// ensure we aren't using a pointer
	cfg.JWT.PrivateKey = "bad"
	cfg = Instance()
	a.Equal("private2.key", cfg.JWT.PrivateKey)
}

func TestDefaults(t *testing.T) {
	a := assert.New(t)

	var cfg Config
	setDefaults(&cfg)
	a.Equal(time.Second*3, cfg.StartDelay())
	a.Equal(time.Second*30, cfg.DisconnectGrace())
	a.Equal(time.Second*30, cfg.Retention())
	a.Equal(time.Second*60, cfg.MatchTimeout())
	a.Equal(500, cfg.Game.MaxStakeLoss)
}
