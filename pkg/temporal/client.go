package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/salesdw/pkg/retry"
	"github.com/canopy-network/salesdw/pkg/utils"
	"go.uber.org/zap"

	"go.temporal.io/api/enums/v1"
	taskqueuepb "go.temporal.io/api/taskqueue/v1"
	workflowservicepb "go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

type Client struct {
	TClient   client.Client
	Namespace string

	// LoaderQueue is polled by the loader worker for batch workflows and activities.
	LoaderQueue string

	// LoadWorkflowID is formatted with the batch date; one workflow per date at a time.
	LoadWorkflowID string
}

type Health struct {
	ConnectionOK bool                      `json:"connection_ok"`
	LoaderQueue  []*taskqueuepb.PollerInfo `json:"loader_queue"`
}

func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	ns := utils.Env("TEMPORAL_NAMESPACE", DefaultNamespace)

	logger.Info("Connecting to Temporal", zap.String("host", host), zap.String("namespace", ns))

	var tClient client.Client
	err := retry.WithBackoff(ctx, retry.DefaultConfig(), logger, "temporal_connection", func() error {
		c, err := Dial(ctx, host, ns, NewZapAdapter(logger))
		if err != nil {
			return err
		}
		if _, err = c.CheckHealth(ctx, nil); err != nil {
			c.Close()
			return err
		}
		tClient = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		TClient:        tClient,
		Namespace:      ns,
		LoaderQueue:    utils.Env("TEMPORAL_LOADER_QUEUE", QueueLoader),
		LoadWorkflowID: WorkflowIDLoad,
	}, nil
}

// Dial connects to Temporal using the provided hostPort and namespace.
func Dial(ctx context.Context, hostPort, namespace string, logger log.Logger) (client.Client, error) {
	return client.DialContext(
		ctx,
		client.Options{
			HostPort:  hostPort,
			Namespace: namespace,
			Logger:    logger,
		},
	)
}

// GetLoadWorkflowID returns the workflow ID of the load for batchDate.
func (c *Client) GetLoadWorkflowID(batchDate time.Time) string {
	return fmt.Sprintf(c.LoadWorkflowID, batchDate.UTC().Format(time.DateOnly))
}

// Health reports whether the connection works and which workers poll the loader queue.
func (c *Client) Health(ctx context.Context) (Health, error) {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if _, err := c.TClient.CheckHealth(ctx, nil); err != nil {
		return Health{}, err
	}
	h := Health{ConnectionOK: true}

	if svc := c.TClient.WorkflowService(); svc != nil {
		if rep, err := svc.DescribeTaskQueue(ctx, &workflowservicepb.DescribeTaskQueueRequest{
			Namespace:     c.Namespace,
			TaskQueue:     &taskqueuepb.TaskQueue{Name: c.LoaderQueue},
			TaskQueueType: enums.TASK_QUEUE_TYPE_WORKFLOW,
		}); err == nil {
			h.LoaderQueue = rep.GetPollers()
		}
	}
	return h, nil
}

// Close closes the underlying Temporal client.
func (c *Client) Close() {
	c.TClient.Close()
}
