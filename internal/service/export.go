// internal/service/export.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/unclebandit/coachline-backend/internal/model"
	"github.com/unclebandit/coachline-backend/internal/queue"
)

// QueueExportSink hands run summaries to the export topic.
type QueueExportSink struct {
	Queue queue.Queue
}

func (s *QueueExportSink) Export(ctx context.Context, run model.CampaignRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Queue.Publish(queue.TopicExports, queue.Job{Run: &run}); err != nil {
		return fmt.Errorf("export run: %w", err)
	}
	return nil
}

// WriteExport is the export consumer: it writes the run as one JSON line to the log.
func WriteExport(run model.CampaignRun) error {
	line, err := json.Marshal(run)
	if err != nil {
		return err
	}
	log.Printf("📊 Campaign export: %s\n", line)
	return nil
}

var _ ExportSink = (*QueueExportSink)(nil)
