package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/Pixelkingsa/consultant-connect/internal/config"
	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/logging"
)

type secretPayload struct {
	DatabaseURL string `json:"DATABASE_URL"`
}

func getSecret(ctx context.Context, sm *secretsmanager.Client, secretArn string) (string, error) {
	out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &secretArn})
	if err != nil {
		return "", fmt.Errorf("get secret: %w", err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret has no string value")
	}
	return parseSecret(*out.SecretString)
}

func parseSecret(raw string) (string, error) {
	var payload secretPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("parse secret json: %w", err)
	}
	if payload.DatabaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL missing in secret")
	}
	return payload.DatabaseURL, nil
}

func metricData(r *db.MaintenanceReport, now time.Time) []cwtypes.MetricDatum {
	datum := func(table string, n int64) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{
			MetricName: awsStr("RowsAffected"),
			Timestamp:  &now,
			Unit:       cwtypes.StandardUnitCount,
			Value:      awsFloat(n),
			Dimensions: dims("Table", table),
		}
	}
	return []cwtypes.MetricDatum{
		datum("refresh_tokens_expired", r.ExpiredRefreshTokens),
		datum("cart_items_abandoned", r.AbandonedCartItems),
		datum("sales_expired", r.ExpiredOrders),
	}
}

func putMetrics(ctx context.Context, cw *cloudwatch.Client, ns string, r *db.MaintenanceReport) error {
	_, err := cw.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &ns,
		MetricData: metricData(r, time.Now()),
	})
	return err
}

func handler(ctx context.Context) (*db.MaintenanceReport, error) {
	region := config.GetEnv("AWS_REGION", "af-south-1")
	secretArn := os.Getenv("SECRET_ARN")
	if secretArn == "" {
		return nil, fmt.Errorf("SECRET_ARN env var is required")
	}
	ns := config.GetEnv("METRIC_NAMESPACE", "ConsultantConnect/Maintenance")
	stmtTimeout := 10 * time.Second
	if v := os.Getenv("STATEMENT_TIMEOUT_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			stmtTimeout = time.Duration(n) * time.Millisecond
		}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	sm := secretsmanager.NewFromConfig(awsCfg)
	cw := cloudwatch.NewFromConfig(awsCfg)

	dbURL, err := getSecret(ctx, sm, secretArn)
	if err != nil {
		return nil, err
	}
	database, err := db.Connect(dbURL, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	defer database.Close()

	report, err := database.RunMaintenance(ctx, config.LoadMaintenance(), stmtTimeout)
	if err != nil {
		logging.Error("maintenance failed", err, map[string]interface{}{"report": report})
		return report, err
	}

	logging.LogKV("info", "maintenance complete", map[string]interface{}{
		"refresh_tokens_expired": report.ExpiredRefreshTokens,
		"cart_items_abandoned":   report.AbandonedCartItems,
		"sales_expired":          report.ExpiredOrders,
	})

	if err := putMetrics(ctx, cw, ns, report); err != nil {
		logging.Error("PutMetricData failed", err, nil)
	}
	return report, nil
}

func awsStr(s string) *string { return &s }
func awsFloat(i int64) *float64 {
	f := float64(i)
	return &f
}

func dims(k, v string) []cwtypes.Dimension {
	return []cwtypes.Dimension{{Name: &k, Value: &v}}
}

func main() { lambda.Start(handler) }
