package order

import "fmt"

// StateTransition 状态转换
type StateTransition struct {
	From Status
	To   Status
}

// StateMachine 订单状态机；转换表初始化后只读。
type StateMachine struct {
	transitions map[StateTransition]bool
}

// NewStateMachine 创建新的状态机
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[StateTransition]bool),
	}
	legal := []StateTransition{
		{StatusActive, StatusPartial},
		{StatusActive, StatusFilled},
		{StatusActive, StatusCanceled},

		{StatusPartial, StatusPartial}, // 多次部分成交
		{StatusPartial, StatusFilled},
		{StatusPartial, StatusCanceled},
		// 终态不能转换
	}
	for _, t := range legal {
		sm.transitions[t] = true
	}
	return sm
}

// ValidateTransition 验证状态转换是否合法
func (sm *StateMachine) ValidateTransition(from, to Status) error {
	if from == to && !sm.IsFinalState(from) {
		return nil
	}
	if !sm.transitions[StateTransition{From: from, To: to}] {
		return fmt.Errorf("illegal state transition: %s -> %s", from, to)
	}
	return nil
}

// IsFinalState 判断是否是终态
func (sm *StateMachine) IsFinalState(status Status) bool {
	return status == StatusFilled || status == StatusCanceled
}

// IsActiveState 判断是否可能继续成交
func (sm *StateMachine) IsActiveState(status Status) bool {
	return status == StatusActive || status == StatusPartial
}
