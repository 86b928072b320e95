package backends

import (
	"authbot/internal/backends/ddb"
	"authbot/internal/backends/memory"
	"authbot/internal/config"
	"authbot/internal/ports"
	"authbot/internal/types"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	redisbackend "authbot/internal/backends/redis"
)

const startupPingTimeout = 5 * time.Second

const AmazonRootCA1PEM = `-----BEGIN CERTIFICATE-----
MIIDQTCCAimgAwIBAgITBmyfz5m/jAo54vB4ikPmljZbyjANBgkqhkiG9w0BAQsF
ADA5MQswCQYDVQQGEwJVUzEPMA0GA1UEChMGQW1hem9uMRkwFwYDVQQDExBBbWF6
b24gUm9vdCBDQSAxMB4XDTE1MDUyNjAwMDAwMFoXDTM4MDExNzAwMDAwMFowOTEL
MAkGA1UEBhMCVVMxDzANBgNVBAoTBkFtYXpvbjEZMBcGA1UEAxMQQW1hem9uIFJv
b3QgQ0EgMTCCASIwDQYJKoZIhvcNAQEBBQADggEPADCCAQoCggEBALJ4gHHKeNXj
ca9HgFB0fW7Y14h29Jlo91ghYPl0hAEvrAIthtOgQ3pOsqTQNroBvo3bSMgHFzZM
9O6II8c+6zf1tRn4SWiw3te5djgdYZ6k/oI2peVKVuRF4fn9tBb6dNqcmzU5L/qw
IFAGbHrQgLKm+a/sRxmPUDgH3KKHOVj4utWp+UhnMJbulHheb4mjUcAwhmahRWa6
VOujw5H5SNz/0egwLX0tdHA114gk957EWW67c4cX8jJGKLhD+rcdqsq08p8kDi1L
93FcXmn/6pUCyziKrlA4b9v7LWIbxcceVOF34GfID5yHI9Y/QCB/IIDEgEw+OyQm
jgSubJrIqg0CAwEAAaNCMEAwDwYDVR0TAQH/BAUwAwEB/zAOBgNVHQ8BAf8EBAMC
AYYwHQYDVR0OBBYEFIQYzIU07LwMlJQuCFmcx7IQTgoIMA0GCSqGSIb3DQEBCwUA
A4IBAQCY8jdaQZChGsV2USggNiMOruYou6r4lK5IpDB/G/wkjUu0yKGX9rbxenDI
U5PMCCjjmCXPI6T53iHTfIUJrU6adTrCC2qJeHZERxhlbI1Bjjt/msv0tadQ1wUs
N+gDS63pYaACbvXy8MWy7Vu33PqUXHeeE6V/Uq2V8viTO96LXFvKWlJbYK8U90vv
o/ufQJVtMVT8QtPHRh8jrdkPSHCa2XV4cdFyQzR1bldZwgJcJmApzyMZFo6IQ6XU
5MsI+yMRQ+hDKXJioaldXgjUkK642M4UwtBV8ob2xJNDd2ZhwLnoQdeXeGADbkpy
rqXRfboQnoZsG4q5WTP468SQvvG5
-----END CERTIFICATE-----`

// StoreFromConfig constructs the TTL store selected by cfg.Backend ("redis",
// "ddb" or "memory"). It never fails: when the backend cannot be set up the
// returned store is an Unavailable one and every call degrades to a cache miss.
// A redis server that does not answer the startup ping is only logged, since
// the client reconnects on its own.
func StoreFromConfig(ctx context.Context, cfg config.CacheConfig) ports.KVStore {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewStore(time.Now)

	case config.BackendDDB:
		ddbClient, err := ddbClientFromConfig(ctx, cfg)
		if err != nil {
			log.WithError(err).Error("failed to create DynamoDB client, cache disabled")
			return NewUnavailable(err)
		}
		store, err := ddb.NewStore(ctx, cfg.DDBTable, ddbClient, cfg.OpTimeout)
		if err != nil {
			log.WithError(err).Error("failed to prepare DynamoDB table, cache disabled")
			return NewUnavailable(err)
		}
		return store

	case config.BackendRedis:
		fallthrough
	default:
		redisClient, err := redisClientFromConfig(cfg)
		if err != nil {
			log.WithError(err).Error("invalid Redis settings, cache disabled")
			return NewUnavailable(err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.WithError(err).Warn("Redis is not reachable yet, running with cache misses until it is")
		} else {
			log.Info("Connected to Redis")
		}
		return redisbackend.NewStore(redisClient, cfg.KeyPrefix, cfg.OpTimeout)
	}
}

// ddbClientFromConfig creates a DynamoDB client. DDBEndpoint is for local testing.
func ddbClientFromConfig(ctx context.Context, cfg config.CacheConfig) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	ddbClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DDBEndpoint)
			if o.Region == "" {
				o.Region = "us-east-1"
			}
			o.Credentials = credentials.NewStaticCredentialsProvider("x", "x", "")
		}
	})
	return ddbClient, nil
}

// redisClientFromConfig prefers RedisURL and falls back to the discrete host/port settings.
func redisClientFromConfig(cfg config.CacheConfig) (*redis.Client, error) {
	var opts *redis.Options
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, types.Err(types.ErrInvalidConfig, err, "REDIS_URL")
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
			Username: cfg.RedisUser,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDBNum,
		}
		if cfg.RedisTLS {
			// Create a CA certificate pool and add our CA certificate
			caCerts := x509.NewCertPool()
			if !caCerts.AppendCertsFromPEM([]byte(AmazonRootCA1PEM)) {
				return nil, fmt.Errorf("failed to retrieve CA certificate")
			}
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
				RootCAs:    caCerts,
			}
		}
	}
	opts.DialTimeout = cfg.OpTimeout
	opts.ReadTimeout = cfg.OpTimeout
	opts.WriteTimeout = cfg.OpTimeout
	return redis.NewClient(opts), nil
}
