package application

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/eugenenazirov/container-scaffold/internal/config"
)

const (
	// TaskQueueKey is the configuration key holding task-queue settings.
	TaskQueueKey = "CELERY"
	// TaskQueueExtension is the Extensions entry the decoded settings land in.
	TaskQueueExtension = "celery"
)

// TaskQueueSettings is the subset of task-queue configuration the scaffold
// understands. Other keys under TaskQueueKey are ignored.
type TaskQueueSettings struct {
	Broker         string `mapstructure:"broker"`
	ResultBackend  string `mapstructure:"result_backend"`
	DefaultQueue   string `mapstructure:"default_queue"`
	TaskSerializer string `mapstructure:"task_serializer"`
	Timezone       string `mapstructure:"timezone"`
}

// TaskQueue decodes the task-queue section. An absent section yields zero settings.
func (a *App) TaskQueue() (TaskQueueSettings, error) {
	if a.Config == nil {
		return TaskQueueSettings{}, nil
	}
	return decodeTaskQueue(a.Config)
}

func decodeTaskQueue(cfg *config.Config) (TaskQueueSettings, error) {
	var settings TaskQueueSettings

	raw, ok := cfg.Store.Get(TaskQueueKey)
	if !ok || raw == nil {
		return settings, nil
	}
	if _, isMapping := raw.(map[string]any); !isMapping {
		return settings, fmt.Errorf("%s must be a mapping, got %T", TaskQueueKey, raw)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &settings,
	})
	if err != nil {
		return settings, fmt.Errorf("build %s decoder: %w", TaskQueueKey, err)
	}
	if err := decoder.Decode(raw); err != nil {
		return settings, fmt.Errorf("decode %s: %w", TaskQueueKey, err)
	}
	return settings, nil
}
