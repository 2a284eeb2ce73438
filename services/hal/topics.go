package hal

import (
	"hbridge-go/bus"
	"hbridge-go/services/hal/internal/core"
	"hbridge-go/types"
)

// TopicConfig is where HAL expects its retained configuration.
func TopicConfig() bus.Topic { return core.TopicConfigHAL() }

// TopicState carries the retained types.HALState.
func TopicState() bus.Topic { return core.TopicHALState() }

// MotorControl is hal/cap/<domain>/motor/<name>/control/<verb>.
func MotorControl(domain, name, verb string) bus.Topic {
	return core.CapCtrl(domain, string(types.KindMotor), name, verb)
}

func MotorValue(domain, name string) bus.Topic {
	return core.CapValue(domain, string(types.KindMotor), name)
}

func MotorStatus(domain, name string) bus.Topic {
	return core.CapStatus(domain, string(types.KindMotor), name)
}

func MotorInfo(domain, name string) bus.Topic {
	return core.CapInfo(domain, string(types.KindMotor), name)
}
