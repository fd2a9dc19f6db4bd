package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/freshbasket/storefront-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/topics/loyalty", TopicResourceName("p1", "loyalty"))
	assert.Equal(t, "projects/other/topics/x", TopicResourceName("p1", "projects/other/topics/x"))
	assert.Equal(t, "", TopicResourceName("p1", "  "))
	assert.Equal(t, "", TopicResourceName("", "loyalty"))
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	assert.Empty(t, topicNames(config.PubSubConfig{LoyaltyTopic: " "}))
	assert.Equal(t, []string{"fb-loyalty"}, topicNames(config.PubSubConfig{LoyaltyTopic: " fb-loyalty "}))
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("x"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))
}

func TestClientOptionsFromCredentials(t *testing.T) {
	assert.Empty(t, clientOptions(config.GCPConfig{ProjectID: "p1"}))
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/secrets/key.json"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: "{}", ApplicationCredentials: "/secrets/key.json"}), 1)
}
