package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/International-Combat-Archery-Alliance/team-tickets/registration"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

var _ registration.Repository = &DB{}

type registrationDynamo struct {
	PK     string
	SK     string
	GSI1PK string
	GSI1SK string

	ID               string
	Version          int
	RegisteredAt     time.Time
	TeamName         string
	Leader           registration.Participant
	Members          []registration.Participant
	TransactionID    string
	ScreenshotRef    string
	Scanned          bool
	ScannedAt        time.Time
	Delivery         registration.DeliveryStatus
	DeliveryAttempts int
}

const (
	registrationEntityName = "REGISTRATION"
)

func registrationPK(id uuid.UUID) string {
	return fmt.Sprintf("%s#%s", registrationEntityName, id)
}

func registrationSK(id uuid.UUID) string {
	return fmt.Sprintf("%s#%s", registrationEntityName, id)
}

func registrationKey(id uuid.UUID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: registrationPK(id)},
		"SK": &types.AttributeValueMemberS{Value: registrationSK(id)},
	}
}

// Fixed width so the keys sort lexically in time order. RFC3339Nano trims
// trailing zeros and would put 05Z after 05.5Z.
const gsi1TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// GSI1 lists every registration in the order they came in.
func registrationGSI1SK(reg registration.Registration) string {
	return fmt.Sprintf("%s#%s#%s", registrationEntityName, reg.RegisteredAt.UTC().Format(gsi1TimeLayout), reg.ID)
}

func registrationToDynamo(reg registration.Registration) registrationDynamo {
	return registrationDynamo{
		PK:               registrationPK(reg.ID),
		SK:               registrationSK(reg.ID),
		GSI1PK:           registrationEntityName,
		GSI1SK:           registrationGSI1SK(reg),
		ID:               reg.ID.String(),
		Version:          reg.Version,
		RegisteredAt:     reg.RegisteredAt,
		TeamName:         reg.TeamName,
		Leader:           reg.Leader,
		Members:          reg.Members,
		TransactionID:    reg.TransactionID,
		ScreenshotRef:    reg.ScreenshotRef,
		Scanned:          reg.Scanned,
		ScannedAt:        reg.ScannedAt,
		Delivery:         reg.Delivery,
		DeliveryAttempts: reg.DeliveryAttempts,
	}
}

func dynamoToRegistration(dynReg registrationDynamo) (registration.Registration, error) {
	id, err := uuid.Parse(dynReg.ID)
	if err != nil {
		return registration.Registration{}, registration.NewFailedToTranslateToDBModelError(fmt.Sprintf("Stored registration has invalid ID %q", dynReg.ID), err)
	}

	return registration.Registration{
		ID:               id,
		Version:          dynReg.Version,
		RegisteredAt:     dynReg.RegisteredAt,
		TeamName:         dynReg.TeamName,
		Leader:           dynReg.Leader,
		Members:          dynReg.Members,
		TransactionID:    dynReg.TransactionID,
		ScreenshotRef:    dynReg.ScreenshotRef,
		Scanned:          dynReg.Scanned,
		ScannedAt:        dynReg.ScannedAt,
		Delivery:         dynReg.Delivery,
		DeliveryAttempts: dynReg.DeliveryAttempts,
	}, nil
}

func (d *DB) CreateRegistration(ctx context.Context, reg registration.Registration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	dynamoReg := registrationToDynamo(reg)

	item, err := attributevalue.MarshalMap(dynamoReg)
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate registration to dynamo model", err)
	}

	expr := exprMustBuild(expression.NewBuilder().
		WithCondition(newEntityVersionConditional(dynamoReg.Version)))

	_, err = d.dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(d.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condCheckFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailedErr) {
			return registration.NewRegistrationAlreadyExistsError(fmt.Sprintf("Registration with ID %q already exists", reg.ID), err)
		}
		return registration.NewFailedToWriteError("Failed PutItem call", err)
	}

	return nil
}

func (d *DB) GetRegistration(ctx context.Context, id uuid.UUID) (registration.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	resp, err := d.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            registrationKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return registration.Registration{}, registration.NewFailedToFetchError(fmt.Sprintf("Failed to fetch registration with id %q", id), err)
	}

	if len(resp.Item) == 0 {
		return registration.Registration{}, registration.NewRegistrationDoesNotExistsError(fmt.Sprintf("Registration with id %q not found", id), nil)
	}

	var dynReg registrationDynamo
	if err := attributevalue.UnmarshalMap(resp.Item, &dynReg); err != nil {
		return registration.Registration{}, registration.NewFailedToTranslateToDBModelError("Failed to unmarshal registration from dynamo", err)
	}

	return dynamoToRegistration(dynReg)
}

func (d *DB) GetAllRegistrations(ctx context.Context) ([]registration.Registration, error) {
	return d.queryRegistrations(ctx, nil)
}

func (d *DB) GetPendingDeliveries(ctx context.Context) ([]registration.Registration, error) {
	filter := expression.Name("Delivery").Equal(expression.Value(registration.DELIVERY_PENDING))
	return d.queryRegistrations(ctx, &filter)
}

func (d *DB) queryRegistrations(ctx context.Context, filter *expression.ConditionBuilder) ([]registration.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	keyCond := expression.Key("GSI1PK").Equal(expression.Value(registrationEntityName)).
		And(expression.Key("GSI1SK").BeginsWith(registrationEntityName))

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr := exprMustBuild(builder)

	paginator := dynamodb.NewQueryPaginator(d.dynamoClient, &dynamodb.QueryInput{
		IndexName:                 aws.String(gsi1),
		TableName:                 aws.String(d.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	regs := []registration.Registration{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, registration.NewFailedToFetchError("Failed to fetch registrations from dynamo", err)
		}

		var dynamoItems []registrationDynamo
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &dynamoItems); err != nil {
			return nil, registration.NewFailedToTranslateToDBModelError("Failed to unmarshal dynamo registrations", err)
		}

		for _, item := range dynamoItems {
			reg, err := dynamoToRegistration(item)
			if err != nil {
				return nil, err
			}
			regs = append(regs, reg)
		}
	}

	return regs, nil
}

func (d *DB) MarkScanned(ctx context.Context, id uuid.UUID, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := expression.Set(expression.Name("Scanned"), expression.Value(true)).
		Set(expression.Name("ScannedAt"), expression.Value(at)).
		Add(expression.Name("Version"), expression.Value(1))

	cond := existingEntityConditional().
		And(expression.Name("Scanned").Equal(expression.Value(false)))

	expr := exprMustBuild(expression.NewBuilder().WithUpdate(update).WithCondition(cond))

	_, err := d.dynamoClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(d.tableName),
		Key:                                 registrationKey(id),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var condCheckFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailedErr) {
			if len(condCheckFailedErr.Item) == 0 {
				return registration.NewRegistrationDoesNotExistsError(fmt.Sprintf("Registration with id %q not found", id), nil)
			}
			return registration.NewAlreadyScannedError(fmt.Sprintf("Registration with id %q was already scanned", id))
		}
		return registration.NewFailedToWriteError("Failed UpdateItem call", err)
	}

	return nil
}

func (d *DB) UpdateDelivery(ctx context.Context, id uuid.UUID, status registration.DeliveryStatus, attempts int) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := expression.Set(expression.Name("Delivery"), expression.Value(status)).
		Set(expression.Name("DeliveryAttempts"), expression.Value(attempts)).
		Add(expression.Name("Version"), expression.Value(1))

	expr := exprMustBuild(expression.NewBuilder().WithUpdate(update).WithCondition(existingEntityConditional()))

	_, err := d.dynamoClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.tableName),
		Key:                       registrationKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condCheckFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailedErr) {
			return registration.NewRegistrationDoesNotExistsError(fmt.Sprintf("Registration with id %q not found", id), err)
		}
		return registration.NewFailedToWriteError("Failed UpdateItem call", err)
	}

	return nil
}
