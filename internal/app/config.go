package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/journeylog/journeylog-backend/internal/platform/envutil"
	"github.com/journeylog/journeylog-backend/internal/services"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string

	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	GCPProjectID string

	CharactersCollection string
	NarrativeSub         string
	POISub               string

	NarrativeDefaultN int
	NarrativeMaxN     int
	ContextDefaultN   int
	ContextMaxN       int
	POIDefaultN       int
	POIMaxN           int
	POISampleCap      int

	POIEmbeddedFallback bool
	POIMigrationEnabled bool
}

func LoadConfig() Config {
	defaults := services.DefaultConfig()
	return Config{
		ServiceName: envutil.String("SERVICE_NAME", "journeylog-backend"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),

		Host:            envutil.String("HOST", "0.0.0.0"),
		Port:            envutil.Int("PORT", 8080),
		ShutdownTimeout: time.Duration(envutil.Int("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
		CORSOrigins:     splitOrigins(envutil.String("CORS_ORIGINS", "")),

		GCPProjectID: envutil.String("GCP_PROJECT_ID", ""),

		CharactersCollection: envutil.String("FIRESTORE_CHARACTERS_COLLECTION", defaults.CharactersCollection),
		NarrativeSub:         envutil.String("FIRESTORE_NARRATIVE_SUBCOLLECTION", defaults.NarrativeSub),
		POISub:               envutil.String("FIRESTORE_POI_SUBCOLLECTION", defaults.POISub),

		NarrativeDefaultN: envutil.Int("NARRATIVE_DEFAULT_N", defaults.NarrativeDefaultN),
		NarrativeMaxN:     envutil.Int("NARRATIVE_MAX_N", defaults.NarrativeMaxN),
		ContextDefaultN:   envutil.Int("CONTEXT_DEFAULT_N", defaults.ContextDefaultN),
		ContextMaxN:       envutil.Int("CONTEXT_MAX_N", defaults.ContextMaxN),
		POIDefaultN:       envutil.Int("POI_DEFAULT_N", defaults.POIDefaultN),
		POIMaxN:           envutil.Int("POI_MAX_N", defaults.POIMaxN),
		POISampleCap:      envutil.Int("POI_SAMPLE_CAP", defaults.POISampleCap),

		POIEmbeddedFallback: envutil.Bool("POI_EMBEDDED_FALLBACK", defaults.POIEmbeddedFallback),
		POIMigrationEnabled: envutil.Bool("POI_MIGRATION_ENABLED", defaults.POIMigrationEnabled),
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) ServicesConfig() services.Config {
	return services.Config{
		CharactersCollection: c.CharactersCollection,
		NarrativeSub:         c.NarrativeSub,
		POISub:               c.POISub,
		NarrativeDefaultN:    c.NarrativeDefaultN,
		NarrativeMaxN:        c.NarrativeMaxN,
		ContextDefaultN:      c.ContextDefaultN,
		ContextMaxN:          c.ContextMaxN,
		POIDefaultN:          c.POIDefaultN,
		POIMaxN:              c.POIMaxN,
		POISampleCap:         c.POISampleCap,
		POIEmbeddedFallback:  c.POIEmbeddedFallback,
		POIMigrationEnabled:  c.POIMigrationEnabled,
	}
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
