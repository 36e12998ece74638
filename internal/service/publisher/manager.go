package publisher

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
)

// Manager holds the registered platform publishers.
type Manager struct {
	publishers map[models.Platform]Publisher
	logger     *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		publishers: make(map[models.Platform]Publisher),
		logger:     logger,
	}
}

func (m *Manager) Register(publisher Publisher) error {
	platform := publisher.PlatformName()
	if _, exists := m.publishers[platform]; exists {
		return fmt.Errorf("publisher for platform %s already registered", platform)
	}

	m.publishers[platform] = publisher
	m.logger.Info("Publisher registered", zap.String("platform", string(platform)))
	return nil
}

func (m *Manager) Get(platform models.Platform) (Publisher, error) {
	publisher, exists := m.publishers[platform]
	if !exists {
		return nil, fmt.Errorf("publisher for platform %s not found", platform)
	}
	return publisher, nil
}

// Available returns the platforms with a registered publisher.
func (m *Manager) Available() []models.Platform {
	var platforms []models.Platform
	for platform := range m.publishers {
		platforms = append(platforms, platform)
	}
	return platforms
}
