package convert

import (
	"context"
	"log"
)

// ============================================================
// Conversion Chain
// ============================================================

// Strategy — один способ превратить DXF в DWG. Каждая стратегия
// отказывает независимо и не прерывает цепочку.
type Strategy interface {
	// Name — имя стратегии для логов и предупреждений.
	Name() string
	// Available сообщает, настроена ли стратегия (ключ, наличие утилиты).
	// Проверяется в момент вызова, не при старте.
	Available() bool
	// Convert выполняет конвертацию DXF → DWG.
	Convert(ctx context.Context, dxf []byte) ([]byte, error)
}

// Result — итог цепочки. При полном отказе возвращается исходный DXF
// с пометкой Fallback и предупреждением — никогда не ошибка.
type Result struct {
	Format   string
	Data     []byte
	Fallback bool
	Warning  string
}

// Chain перебирает стратегии по порядку до первого успеха.
type Chain struct {
	strategies []Strategy
}

func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Convert пробует стратегии по очереди. Ошибки наружу не выходят:
// полный отказ деградирует до исходного DXF с предупреждением.
func (c *Chain) Convert(ctx context.Context, dxf []byte) Result {
	for _, s := range c.strategies {
		if !s.Available() {
			log.Printf("[CONVERT] Strategy %s not available, skipping", s.Name())
			continue
		}

		data, err := s.Convert(ctx, dxf)
		if err != nil {
			log.Printf("[CONVERT] Strategy %s failed: %v", s.Name(), err)
			continue
		}

		log.Printf("[CONVERT] Strategy %s produced %d bytes", s.Name(), len(data))
		return Result{Format: "dwg", Data: data}
	}

	return Result{
		Format:   "dxf",
		Data:     dxf,
		Fallback: true,
		Warning:  "DWG conversion is unavailable; the DXF drawing is returned instead",
	}
}
