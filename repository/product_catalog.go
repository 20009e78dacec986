package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vaibhavugile/doenew/models"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

var ErrProductNotFound = errors.New("product not found")

// ProductCatalog reads the rental attributes of a product.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
}

// DynamoGetItemAPI is the part of the DynamoDB client the catalog uses.
type DynamoGetItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoProductCatalog reads products from the table shared with the
// product service. Primary key `product_id` (string).
type DynamoProductCatalog struct {
	client DynamoGetItemAPI
	table  string
}

func NewDynamoProductCatalog(client DynamoGetItemAPI, table string) *DynamoProductCatalog {
	return &DynamoProductCatalog{client: client, table: table}
}

type ddbRentalProduct struct {
	ProductID       string   `dynamodbav:"product_id"`
	Name            string   `dynamodbav:"name"`
	Rent            float64  `dynamodbav:"rent"`
	Price           float64  `dynamodbav:"price"`
	SecurityDeposit float64  `dynamodbav:"security_deposit,omitempty"`
	WeightKg        float64  `dynamodbav:"weight_kg,omitempty"`
	PaymentMode     string   `dynamodbav:"payment_mode,omitempty"`
	Sizes           []string `dynamodbav:"sizes,omitempty"`
	Colors          []string `dynamodbav:"colors,omitempty"`
	Status          string   `dynamodbav:"status,omitempty"`
	DeletedAt       *string  `dynamodbav:"deleted_at,omitempty"`
}

func (c *DynamoProductCatalog) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": productID})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: &c.table, Key: key})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrProductNotFound
	}

	var dp ddbRentalProduct
	if err := attributevalue.UnmarshalMap(out.Item, &dp); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}

	p := &models.Product{
		ID:              dp.ProductID,
		Name:            dp.Name,
		Rent:            dp.Rent,
		SecurityDeposit: dp.SecurityDeposit,
		WeightKg:        dp.WeightKg,
		CashOnDelivery:  dp.PaymentMode == "cod",
		Sizes:           dp.Sizes,
		Colors:          dp.Colors,
		Active:          dp.DeletedAt == nil && (dp.Status == "" || dp.Status == "active"),
	}
	// Older items only carry the storefront price.
	if p.Rent == 0 {
		p.Rent = dp.Price
	}
	return p, nil
}
