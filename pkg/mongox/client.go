package mongox

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/arkvault/userstore/pkg/logger"
)

// Client wraps mongo.Client with connection logging and health checks
type Client struct {
	*mongo.Client
	uri    string
	logger *logger.Logger
}

// NewClient creates a new MongoDB client from a connection URI and verifies
// the connection with a ping
func NewClient(uri string, connectTimeout time.Duration, log *logger.Logger) (*Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo URI cannot be empty")
	}

	if log == nil {
		log = logger.NewDefault()
	}

	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	client := &Client{
		Client: mongoClient,
		uri:    uri,
		logger: log.WithComponent("mongox"),
	}

	client.logger.Info("MongoDB client connected")

	return client, nil
}

// Close disconnects the MongoDB client
func (c *Client) Close(ctx context.Context) error {
	c.logger.Info("Closing MongoDB connection")
	return c.Client.Disconnect(ctx)
}

// HealthCheck performs a health check on the MongoDB connection
func (c *Client) HealthCheck(ctx context.Context) error {
	start := time.Now()
	err := c.Ping(ctx, readpref.Primary())
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("MongoDB health check failed",
			zap.Error(err),
			zap.Duration("duration", duration),
		)
		return err
	}

	c.logger.Debug("MongoDB health check passed",
		zap.Duration("duration", duration),
	)

	return nil
}
