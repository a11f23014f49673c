// Package catalog loads the immutable pricing snapshot a quote is computed
// against: product prices, inventory costs, price rules, and bundle offers.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Store reads snapshot data from Postgres with an optional Redis layer for
// offer lookups.
type Store struct {
	Pool  *pgxpool.Pool
	Cache *Cache
}

// NewStore constructs a snapshot store.
func NewStore(pool *pgxpool.Pool, cache *Cache) (*Store, error) {
	if pool == nil {
		return nil, errors.New("catalog: pgx pool is required")
	}
	return &Store{Pool: pool, Cache: cache}, nil
}

// Snapshot assembles the pricing snapshot for the given product set. Products
// missing from the catalog are simply absent from the result; offers are
// restricted to those whose every item is present.
func (s *Store) Snapshot(ctx context.Context, productIDs []uuid.UUID) (pricing.Snapshot, error) {
	snap := pricing.Snapshot{Products: map[uuid.UUID]pricing.ProductSnapshot{}}
	if len(productIDs) == 0 {
		return snap, nil
	}
	ids := dedupe(productIDs)

	products, err := s.loadProducts(ctx, ids)
	if err != nil {
		return pricing.Snapshot{}, err
	}
	snap.Products = products

	if snap.Rules, err = s.loadRules(ctx, ids); err != nil {
		return pricing.Snapshot{}, err
	}
	if snap.Offers, err = s.loadOffers(ctx, products); err != nil {
		return pricing.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) loadProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.ProductSnapshot, error) {
	const q = `
		SELECT p.id, p.price_usd::text, i.average_cost_usd::text
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id
		WHERE p.id = ANY($1)`
	rows, err := s.Pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]pricing.ProductSnapshot, len(ids))
	for rows.Next() {
		var (
			id      uuid.UUID
			price   string
			avgCost *string
		)
		if err := rows.Scan(&id, &price, &avgCost); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p := pricing.ProductSnapshot{ID: id}
		if p.PriceUSD, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %s price: %w", id, err)
		}
		if avgCost != nil {
			cost, err := decimal.NewFromString(*avgCost)
			if err != nil {
				return nil, fmt.Errorf("product %s cost: %w", id, err)
			}
			p.AverageCostUSD = &cost
		}
		out[id] = p
	}
	return out, rows.Err()
}

func (s *Store) loadRules(ctx context.Context, ids []uuid.UUID) ([]pricing.PriceRule, error) {
	const q = `
		SELECT id, product_id, discount_percent::text, is_active
		FROM price_rules
		WHERE product_id = ANY($1) AND is_active`
	rows, err := s.Pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("load price rules: %w", err)
	}
	defer rows.Close()

	var out []pricing.PriceRule
	for rows.Next() {
		var (
			rule     pricing.PriceRule
			discount string
		)
		if err := rows.Scan(&rule.ID, &rule.ProductID, &discount, &rule.IsActive); err != nil {
			return nil, fmt.Errorf("scan price rule: %w", err)
		}
		if rule.DiscountPercent, err = decimal.NewFromString(discount); err != nil {
			return nil, fmt.Errorf("rule %s discount: %w", rule.ID, err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (s *Store) loadOffers(ctx context.Context, products map[uuid.UUID]pricing.ProductSnapshot) ([]pricing.Offer, error) {
	key := offersCacheKey(products)
	if s.Cache != nil {
		var cached []pricing.Offer
		if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}

	const offerQ = `SELECT id, price_usd::text FROM offers WHERE is_active`
	rows, err := s.Pool.Query(ctx, offerQ)
	if err != nil {
		return nil, fmt.Errorf("load offers: %w", err)
	}
	byID := make(map[uuid.UUID]*pricing.Offer)
	order := make([]uuid.UUID, 0)
	for rows.Next() {
		var (
			id    uuid.UUID
			price string
		)
		if err := rows.Scan(&id, &price); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("offer %s price: %w", id, err)
		}
		byID[id] = &pricing.Offer{ID: id, PriceUSD: p, IsActive: true}
		order = append(order, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, nil
	}

	const itemQ = `
		SELECT offer_id, product_id, quantity::text
		FROM offer_items
		WHERE offer_id = ANY($1)
		ORDER BY offer_id`
	itemRows, err := s.Pool.Query(ctx, itemQ, order)
	if err != nil {
		return nil, fmt.Errorf("load offer items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var (
			offerID uuid.UUID
			item    pricing.OfferItem
			qty     string
		)
		if err := itemRows.Scan(&offerID, &item.ProductID, &qty); err != nil {
			return nil, fmt.Errorf("scan offer item: %w", err)
		}
		if item.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("offer %s item quantity: %w", offerID, err)
		}
		if offer, ok := byID[offerID]; ok {
			offer.Items = append(offer.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	// Only offers fully covered by the requested product set can allocate.
	var out []pricing.Offer
	for _, id := range order {
		offer := byID[id]
		if len(offer.Items) == 0 {
			continue
		}
		covered := true
		for _, item := range offer.Items {
			if _, ok := products[item.ProductID]; !ok {
				covered = false
				break
			}
		}
		if covered {
			out = append(out, *offer)
		}
	}

	if s.Cache != nil {
		_ = s.Cache.SetJSON(ctx, key, out)
	}
	return out, nil
}

// offersCacheKey derives a stable key from the sorted product id set.
func offersCacheKey(products map[uuid.UUID]pricing.ProductSnapshot) string {
	ids := make([]string, 0, len(products))
	for id := range products {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
	}
	return "catalog:offers:" + hex.EncodeToString(h.Sum(nil))
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
