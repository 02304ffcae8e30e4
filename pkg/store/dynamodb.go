// Copyright 2026 The Certattest Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/certattest/certattest/pkg/attest"
	"github.com/certattest/certattest/pkg/awsutil"
	"github.com/certattest/certattest/pkg/certificate"
	"github.com/certattest/certattest/pkg/config"
	"github.com/certattest/certattest/pkg/log"
)

// hashKey is the partition key attribute of the table.
const hashKey = "commonName"

type item struct {
	CommonName      string    `dynamodbav:"commonName"`
	Signature       string    `dynamodbav:"signature"`
	VerificationKey string    `dynamodbav:"verificationKey,omitempty"`
	KeyEncoding     string    `dynamodbav:"keyEncoding,omitempty"`
	CreatedAt       time.Time `dynamodbav:"createdAt"`
}

// DynamoDBStore writes one item per identity; a later attestation of the same
// identity replaces the earlier item.
type DynamoDBStore struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

func NewDynamoDBStore(table string, cfg config.AWSConfig) (*DynamoDBStore, error) {
	if table == "" {
		return nil, errors.New("dynamodb store requires a table")
	}
	sess, err := awsutil.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return NewDynamoDBStoreWithClient(dynamodb.New(sess), table), nil
}

// NewDynamoDBStoreWithClient wraps an existing client.
func NewDynamoDBStoreWithClient(client dynamodbiface.DynamoDBAPI, table string) *DynamoDBStore {
	return &DynamoDBStore{client: client, table: table}
}

func (d *DynamoDBStore) Put(ctx context.Context, record *attest.Record) error {
	if err := validate(record); err != nil {
		return err
	}
	av, err := dynamodbattribute.MarshalMap(item{
		CommonName:      record.Identity,
		Signature:       record.Signature,
		VerificationKey: record.VerificationKey,
		KeyEncoding:     string(record.KeyEncoding),
		CreatedAt:       record.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	start := time.Now()
	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	})
	if err != nil {
		log.ContextLogger(ctx).Errorw("failed to write record to DynamoDB",
			"table", d.table, "identity", record.Identity, "error", err, "duration", time.Since(start))
		return fmt.Errorf("writing record to DynamoDB table %s: %w", d.table, err)
	}
	log.ContextLogger(ctx).Debugw("wrote record to DynamoDB",
		"table", d.table, "identity", record.Identity, "duration", time.Since(start))
	return nil
}

func (d *DynamoDBStore) Get(ctx context.Context, identity string) (*attest.Record, error) {
	out, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]*dynamodb.AttributeValue{
			hashKey: {S: aws.String(identity)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("reading record from DynamoDB table %s: %w", d.table, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}

	var it item
	if err := dynamodbattribute.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshaling record: %w", err)
	}
	return &attest.Record{
		Identity:        it.CommonName,
		Signature:       it.Signature,
		VerificationKey: it.VerificationKey,
		KeyEncoding:     certificate.KeyEncoding(it.KeyEncoding),
		CreatedAt:       it.CreatedAt,
	}, nil
}

// CreateTable creates the table with on-demand billing. An existing table is
// not an error.
func (d *DynamoDBStore) CreateTable(ctx context.Context) error {
	_, err := d.client.CreateTableWithContext(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(d.table),
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{AttributeName: aws.String(hashKey), AttributeType: aws.String(dynamodb.ScalarAttributeTypeS)},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{AttributeName: aws.String(hashKey), KeyType: aws.String(dynamodb.KeyTypeHash)},
		},
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeResourceInUseException {
			return nil
		}
		return fmt.Errorf("creating DynamoDB table %s: %w", d.table, err)
	}
	log.Logger.Infof("created DynamoDB table %s", d.table)
	return nil
}

func (d *DynamoDBStore) Name() string {
	return "dynamodb-" + d.table
}
