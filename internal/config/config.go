package config

import (
	"os"
	"time"

	"arena-service/internal/domain"
	"arena-service/internal/progression"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Arena struct {
		ChallengeTTL   string `yaml:"challengeTtl"`
		RequestTimeout string `yaml:"requestTimeout"`
	} `yaml:"arena"`
	Progression struct {
		BaseXPPerLevel    int            `yaml:"baseXpPerLevel"`
		GrowthFactor      float64        `yaml:"growthFactor"`
		StreakMultiplier  float64        `yaml:"streakMultiplier"`
		MaxStreakForBonus int            `yaml:"maxStreakForBonus"`
		BaseXP            map[string]int `yaml:"baseXp"`
	} `yaml:"progression"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// ProgressionConfig overlays any configured tuning on the defaults and
// validates the result, so a malformed file fails at startup.
func (c Config) ProgressionConfig() (progression.Config, error) {
	calc := progression.DefaultConfig()
	if c.Progression.BaseXPPerLevel > 0 {
		calc.BaseXPPerLevel = c.Progression.BaseXPPerLevel
	}
	if c.Progression.GrowthFactor > 0 {
		calc.GrowthFactor = c.Progression.GrowthFactor
	}
	if c.Progression.StreakMultiplier > 0 {
		calc.StreakMultiplier = c.Progression.StreakMultiplier
	}
	if c.Progression.MaxStreakForBonus > 0 {
		calc.MaxStreakForBonus = c.Progression.MaxStreakForBonus
	}
	for raw, xp := range c.Progression.BaseXP {
		difficulty, err := domain.ParseDifficulty(raw)
		if err != nil {
			return progression.Config{}, err
		}
		calc.BaseXP[difficulty] = xp
	}
	if err := calc.Validate(); err != nil {
		return progression.Config{}, err
	}
	return calc, nil
}
