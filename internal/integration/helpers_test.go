//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/asos-pressure-etl/internal/adapter/ncei"
	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

var est = time.FixedZone("EST", -5*60*60)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("pressure-etl-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// monthFile renders the first day of ym as page-2 lines.
func monthFile(ym domain.YearMonth) []byte {
	start := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, est)
	var lines []ncei.Line
	for i := range 24 * 60 {
		lines = append(lines, ncei.Line{
			WBAN:     "12838",
			Station:  "KMLB",
			Local:    start.Add(time.Duration(i) * time.Minute),
			Pressure: [3]string{"30.010", "30.012", "30.008"},
			Temp:     "62",
			Dewpoint: "57",
		})
	}
	return ncei.FormatFile(lines)
}
