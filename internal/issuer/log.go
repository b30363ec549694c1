package issuer

import (
	"context"
	"fmt"

	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/logger"
)

// LogDeliverer 只记录日志的发放方，用于本地运行
type LogDeliverer struct{}

func (LogDeliverer) Deliver(_ context.Context, a ledger.Allocation) (string, error) {
	logger.Info("Allocation: %d units of %s (launch %d) to %s", a.Count, a.Collection, a.LaunchID, a.Recipient.Hex())
	return fmt.Sprintf("log:%d:%s", a.LaunchID, a.Recipient.Hex()), nil
}
