package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Projector mirrors canonical catalog records as graph nodes. It satisfies
// the orchestrator's graph sink.
type Projector struct {
	client *Client
	logger ectologger.Logger
}

// NewProjector creates a new catalog projector
func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{
		client: client,
		logger: logger,
	}
}

// ProjectRestaurant creates or updates a restaurant node. Restaurants with a
// city also get an IN_CITY edge to the city node.
func (p *Projector) ProjectRestaurant(ctx context.Context, restaurant *models.Restaurant) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectRestaurant")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"restaurant_id": restaurant.ID,
	})

	props := map[string]any{
		"id":          restaurant.ID,
		"name":        restaurant.Name,
		"status":      string(restaurant.Status),
		"rating":      restaurant.Rating.Overall,
		"price_level": restaurant.PriceLevel,
		"synced_at":   restaurant.SyncedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}

	cypher := `
		MERGE (r:Restaurant {id: $id})
		SET r = $props
		RETURN r
	`
	params := map[string]any{
		"id":    restaurant.ID,
		"props": props,
	}

	if restaurant.Address.City != "" {
		cypher = `
			MERGE (r:Restaurant {id: $id})
			SET r = $props
			MERGE (c:City {name: $city})
			MERGE (r)-[:IN_CITY]->(c)
			RETURN r
		`
		params["city"] = restaurant.Address.City
	}

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to project restaurant to graph")
		return fmt.Errorf("failed to project restaurant to graph: %w", err)
	}

	log.Debug("Projected restaurant to graph")
	return nil
}

// ProjectDish creates or updates a dish node and its SERVES edge from the
// owning restaurant.
func (p *Projector) ProjectDish(ctx context.Context, dish *models.Dish) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectDish")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"dish_id":       dish.ID,
		"restaurant_id": dish.RestaurantID,
	})

	props := map[string]any{
		"id":            dish.ID,
		"restaurant_id": dish.RestaurantID,
		"name":          dish.Name,
		"category":      dish.Category,
		"price":         dish.Price,
		"source":        string(dish.Source),
	}

	cypher := `
		MERGE (d:Dish {id: $id})
		SET d = $props
		MERGE (r:Restaurant {id: $restaurant_id})
		MERGE (r)-[:SERVES]->(d)
		RETURN d
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":            dish.ID,
			"restaurant_id": dish.RestaurantID,
			"props":         props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to project dish to graph")
		return fmt.Errorf("failed to project dish to graph: %w", err)
	}

	log.Debug("Projected dish to graph")
	return nil
}
