package coordinator

import (
	"context"
	"fmt"

	"github.com/jcmexdev/disqueria/internal/pkg/commands"
)

// DecreaseStockStep reserves one order line by decrementing the album's
// stock in the catalog service. Its compensation puts the quantity back.
type DecreaseStockStep struct {
	catalog  commands.Sender
	index    int
	albumID  string
	quantity int
}

func NewDecreaseStockStep(catalog commands.Sender, index int, albumID string, quantity int) *DecreaseStockStep {
	return &DecreaseStockStep{
		catalog:  catalog,
		index:    index,
		albumID:  albumID,
		quantity: quantity,
	}
}

func (s *DecreaseStockStep) Name() string {
	return fmt.Sprintf("%s#%d(%s)", commands.DecreaseStock.Name, s.index, s.albumID)
}

// Execute returns the catalog's error unchanged so its status and message
// reach the caller of the saga.
func (s *DecreaseStockStep) Execute(ctx context.Context) error {
	_, err := commands.DecreaseStock.Send(ctx, s.catalog, commands.StockPayload{ID: s.albumID, Quantity: s.quantity})
	return err
}

func (s *DecreaseStockStep) Compensate(ctx context.Context) error {
	_, err := commands.IncreaseStock.Send(ctx, s.catalog, commands.StockPayload{ID: s.albumID, Quantity: s.quantity})
	if err != nil {
		return fmt.Errorf("restore %d of album %s: %w", s.quantity, s.albumID, err)
	}
	return nil
}
