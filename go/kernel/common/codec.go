package common

import (
	"github.com/lunixbochs/argjoy"
	"github.com/pkg/errors"
)

func (k *KernelBase) commonArgCodec(arg interface{}, vals []interface{}) error {
	if reg, ok := vals[0].(uint64); ok {
		switch v := arg.(type) {
		case *Buf:
			*v = NewBuf(k, reg)
		case *Obuf:
			*v = Obuf{NewBuf(k, reg)}
		case *Len:
			*v = Len(reg)
		case *Fd:
			*v = Fd(reg)
		case *Ptr:
			*v = Ptr(reg)
		case *Pid:
			*v = Pid(reg)
		// signed arguments are truncated like the register they came from
		case *int32:
			*v = int32(reg)
		case *int64:
			*v = int64(reg)
		case *int:
			*v = int(reg)
		case *string:
			s, err := k.Mem().ReadStr(reg)
			if err != nil {
				return errors.Wrap(ErrFault, err.Error())
			}
			*v = s
		default:
			return argjoy.NoMatch
		}
		return nil
	}
	return argjoy.NoMatch
}
