package ddb

import (
	"authbot/internal/types"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"
)

const (
	SValue = "VALUE"

	ttlAttributeName = "ttl"
)

func pkEntry(ns types.Namespace, key string) string {
	return fmt.Sprintf("%s#%s", ns, key)
}

func skValue() string {
	return SValue
}

// createTableIfNotExists creates the PK/SK table and turns on native TTL.
// An existing table is not an error.
func createTableIfNotExists(ctx context.Context, client *dynamodb.Client, table string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: &table,
		AttributeDefinitions: []ddbTypes.AttributeDefinition{
			{AttributeName: awsString("PK"), AttributeType: ddbTypes.ScalarAttributeTypeS},
			{AttributeName: awsString("SK"), AttributeType: ddbTypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbTypes.KeySchemaElement{
			{AttributeName: awsString("PK"), KeyType: ddbTypes.KeyTypeHash},
			{AttributeName: awsString("SK"), KeyType: ddbTypes.KeyTypeRange},
		},
		BillingMode: ddbTypes.BillingModePayPerRequest,
	})
	var re *ddbTypes.ResourceInUseException
	if err != nil {
		if errors.As(err, &re) {
			return nil
		}
		return fmt.Errorf("create table %s: %w", table, err)
	}

	err = dynamodb.NewTableExistsWaiter(client).Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: &table,
	}, tableWaitTimeout)
	if err != nil {
		return fmt.Errorf("wait for table %s: %w", table, err)
	}
	_, err = client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: &table,
		TimeToLiveSpecification: &ddbTypes.TimeToLiveSpecification{
			AttributeName: awsString(ttlAttributeName),
			Enabled:       awsBool(true),
		},
	})
	if err != nil {
		// Reads filter on the ttl attribute anyway; eviction is only housekeeping.
		log.WithError(err).WithField("table", table).Warn("could not enable DynamoDB TTL")
	}
	return nil
}

func awsString(s string) *string {
	return &s
}

func awsBool(b bool) *bool {
	return &b
}
