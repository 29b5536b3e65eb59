package services

import (
	"context"
	"testing"

	domain "github.com/valitor-commerce/api/internal/domain"
)

func TestDiscountClassifier_AllItemsDiscounted(t *testing.T) {
	rules := map[string]domain.CartRule{
		"1": {ID: "1", ApplyToShipping: true},
		"2": {ID: "2", ApplyToShipping: false},
	}

	tests := []struct {
		name  string
		items []domain.OrderItem
		want  bool
	}{
		{
			name:  "no items",
			items: nil,
			want:  true,
		},
		{
			name:  "item without rules",
			items: []domain.OrderItem{{ItemID: "1", ProductType: domain.ProductTypeSimple}},
			want:  false,
		},
		{
			name: "all items on shipping rule",
			items: []domain.OrderItem{
				{ItemID: "1", ProductType: domain.ProductTypeSimple, AppliedRuleIDs: "1"},
				{ItemID: "2", ProductType: domain.ProductTypeConfigurable, AppliedRuleIDs: "1"},
			},
			want: true,
		},
		{
			name: "non-shipping rule on shippable item",
			items: []domain.OrderItem{
				{ItemID: "1", ProductType: domain.ProductTypeSimple, AppliedRuleIDs: "1,2"},
			},
			want: false,
		},
		{
			name: "non-shipping rule on virtual item",
			items: []domain.OrderItem{
				{ItemID: "1", ProductType: domain.ProductTypeVirtual, AppliedRuleIDs: "2"},
				{ItemID: "2", ProductType: domain.ProductTypeDownloadable, AppliedRuleIDs: "2"},
			},
			want: true,
		},
		{
			name: "missing rule behaves like rule without the flag",
			items: []domain.OrderItem{
				{ItemID: "1", ProductType: domain.ProductTypeSimple, AppliedRuleIDs: "404"},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier, err := NewDiscountClassifier(&stubCartRuleRepository{rules: rules})
			if err != nil {
				t.Fatalf("NewDiscountClassifier error: %v", err)
			}
			got, err := classifier.AllItemsDiscounted(context.Background(), tt.items)
			if err != nil {
				t.Fatalf("AllItemsDiscounted error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDiscountClassifier_PropagatesRepositoryFailure(t *testing.T) {
	classifier, err := NewDiscountClassifier(&stubCartRuleRepository{err: context.DeadlineExceeded})
	if err != nil {
		t.Fatalf("NewDiscountClassifier error: %v", err)
	}
	_, err = classifier.AllItemsDiscounted(context.Background(), []domain.OrderItem{
		{ItemID: "1", ProductType: domain.ProductTypeSimple, AppliedRuleIDs: "1"},
	})
	if err == nil {
		t.Fatal("expected repository failure to propagate")
	}
}
