package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServiceName != "agora-ceremony-engine" {
		t.Errorf("ServiceName = %q, want default", cfg.ServiceName)
	}
	if cfg.HTTPPort != "8080" || cfg.MetricsPort != "9090" {
		t.Errorf("ports = %q/%q, want 8080/9090", cfg.HTTPPort, cfg.MetricsPort)
	}
	if !cfg.AutoMigrate {
		t.Error("AutoMigrate should default to true")
	}
	if cfg.VestingDuration() != 72*time.Hour {
		t.Errorf("VestingDuration = %v, want 72h", cfg.VestingDuration())
	}
	if cfg.VoteMinPoints != 1 || cfg.VoteMaxPoints != 21 {
		t.Errorf("vote bounds = %d..%d, want 1..21", cfg.VoteMinPoints, cfg.VoteMaxPoints)
	}
	if cfg.MaxParticipants != 256 || cfg.MaxFeatureSessions != 64 {
		t.Errorf("caps = %d/%d, want 256/64", cfg.MaxParticipants, cfg.MaxFeatureSessions)
	}
	if !cfg.OpenCeremonyStart {
		t.Error("OpenCeremonyStart should default to true")
	}
	if cfg.PollInterval() != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.PollInterval())
	}
	if cfg.OutboxBatchSize != 100 {
		t.Errorf("OutboxBatchSize = %d, want 100", cfg.OutboxBatchSize)
	}
	if brokers := cfg.KafkaBrokerList(); len(brokers) != 1 || brokers[0] != "localhost:9092" {
		t.Errorf("KafkaBrokerList = %v, want [localhost:9092]", brokers)
	}
	if admins := cfg.AdminIdentityList(); len(admins) != 0 {
		t.Errorf("AdminIdentityList = %v, want empty", admins)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	os.Clearenv()
	os.Setenv("VESTING_PERIOD", "24h")
	os.Setenv("VOTE_MAX_POINTS", "100")
	os.Setenv("OPEN_CEREMONY_START", "false")
	os.Setenv("ADMIN_IDENTITIES", " root , ops ")
	os.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.VestingDuration() != 24*time.Hour {
		t.Errorf("VestingDuration = %v, want 24h", cfg.VestingDuration())
	}
	if cfg.VoteMaxPoints != 100 {
		t.Errorf("VoteMaxPoints = %d, want 100", cfg.VoteMaxPoints)
	}
	if cfg.OpenCeremonyStart {
		t.Error("OpenCeremonyStart override did not apply")
	}
	admins := cfg.AdminIdentityList()
	if len(admins) != 2 || admins[0] != "root" || admins[1] != "ops" {
		t.Errorf("AdminIdentityList = %v, want [root ops]", admins)
	}
	brokers := cfg.KafkaBrokerList()
	if len(brokers) != 2 || brokers[1] != "kafka-2:9092" {
		t.Errorf("KafkaBrokerList = %v", brokers)
	}
}

func TestLoadRejectsInvertedVoteBounds(t *testing.T) {
	os.Clearenv()
	os.Setenv("VOTE_MIN_POINTS", "30")
	os.Setenv("VOTE_MAX_POINTS", "5")

	if _, err := Load(); err == nil {
		t.Fatal("expected inverted vote bounds to fail validation")
	}
}
