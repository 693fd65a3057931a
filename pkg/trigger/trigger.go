package trigger

import (
	"net/url"

	"github.com/mentorium/mentorium-api/pkg/httpclient"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"go.uber.org/zap"
)

// CallAsync fires a GET to webhookURL with the record id appended as the
// "id" query parameter. It never blocks the caller and only logs failures.
func CallAsync(webhookURL, recordID string, httpClient httpclient.Client) {
	if webhookURL == "" {
		return
	}

	go func() {
		targetURL, err := withRecordID(webhookURL, recordID)
		if err != nil {
			logger.Error("Invalid webhook URL", zap.Error(err), zap.String("record_id", recordID))
			return
		}

		resp, err := httpClient.Get(targetURL)
		if err != nil {
			logger.Error("Failed to call webhook",
				zap.Error(err),
				zap.String("url", targetURL),
				zap.String("record_id", recordID))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("Webhook called",
				zap.String("record_id", recordID),
				zap.Int("status_code", resp.StatusCode))
			return
		}
		logger.Warn("Webhook returned non-success status",
			zap.String("url", targetURL),
			zap.String("record_id", recordID),
			zap.Int("status_code", resp.StatusCode))
	}()
}

func withRecordID(webhookURL, recordID string) (string, error) {
	u, err := url.Parse(webhookURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("id", recordID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
