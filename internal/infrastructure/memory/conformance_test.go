package memory_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"vn.io.arda/notification-pipeline/internal/domain"
	"vn.io.arda/notification-pipeline/internal/infrastructure/memory"
	"vn.io.arda/notification-pipeline/internal/infrastructure/storetest"
)

func TestMemoryStoreConformance(t *testing.T) {
	suite.Run(t, &storetest.Suite{NewStore: func() domain.Store { return memory.New() }})
}
