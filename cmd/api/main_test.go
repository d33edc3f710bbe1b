package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthStatus(t *testing.T) {
	// memory-backed deployments have no hard external dependencies
	assert.Equal(t, http.StatusOK, healthStatus("memory", false))
	assert.Equal(t, http.StatusOK, healthStatus("memory", true))

	assert.Equal(t, http.StatusOK, healthStatus("redis", true))
	assert.Equal(t, http.StatusServiceUnavailable, healthStatus("redis", false))
}
