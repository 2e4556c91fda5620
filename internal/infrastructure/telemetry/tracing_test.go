package telemetry

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestGinMiddleware(t *testing.T) {
	mw := GinMiddleware(Config{Enabled: true, ServiceName: "stockup-backend"})
	assert.NotNil(t, mw)
}

func TestInstrumentGorm(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	err = InstrumentGorm(gormDB, Config{Enabled: true, ServiceName: "stockup-backend"}, zap.NewNop())

	require.NoError(t, err)
	// the plugin hooks every query through its create callback
	assert.NotNil(t, gormDB.Callback().Create().Get("otel:before:create"))
}
