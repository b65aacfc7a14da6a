package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/salesdesk/salesdesk/internal/app"
	"github.com/salesdesk/salesdesk/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	assert.Equal(t, "1", os.Getenv(guard.EnvVar))
	app.RefreshTestMode()
	assert.True(t, app.InTestMode())
	main()
}
