// internal/service/auction/infrastructure/rule/cel_rules_engine.go
package rule

import (
	"context"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"gavel/internal/service/auction/domain"
)

// CELBidPolicy 是 port.BidPolicy 接口的 CEL 实现。
// 规则表达式来自配置，启动时编译一次，运行期只做求值。
// 典型规则: "bidder_id != creator_id"（创建者不得参与自己的拍卖）。
// 这是一个适配器模式应用，把 cel-go 的 API 适配到我们自己的领域接口。
type CELBidPolicy struct {
	program cel.Program // 空规则时为 nil，表示放行
}

// NewCELBidPolicy 编译规则表达式。expression 为空串返回放行策略。
func NewCELBidPolicy(expression string) (*CELBidPolicy, error) {
	if expression == "" {
		return &CELBidPolicy{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("creator_id", cel.StringType),
		cel.Variable("bidder_id", cel.StringType),
		cel.Variable("amount", cel.IntType),
		cel.Variable("currency", cel.StringType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrap(issues.Err(), "bid policy expression does not compile")
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build bid policy program")
	}
	return &CELBidPolicy{program: program}, nil
}

// Authorize 实现 port.BidPolicy。表达式求值为 true 放行，false 拒绝。
func (p *CELBidPolicy) Authorize(ctx context.Context, auction *domain.Auction, bidderID uuid.UUID, amount domain.Money) error {
	if p.program == nil {
		return nil
	}

	out, _, err := p.program.ContextEval(ctx, map[string]interface{}{
		"kind":       string(auction.Kind),
		"status":     string(auction.Status),
		"creator_id": auction.CreatorID.String(),
		"bidder_id":  bidderID.String(),
		"amount":     amount.Amount,
		"currency":   amount.Currency,
	})
	if err != nil {
		return errors.Wrap(err, "bid policy evaluation failed")
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return errors.Errorf("bid policy returned non-boolean result: %v", out.Value())
	}
	if !allowed {
		return domain.NewValidationError("bid", "rejected by bidding policy")
	}
	return nil
}
