package model

// Action names something a user can ask the service to do.  Every
// state-changing operation maps to exactly one Action.
type Action uint8

const (
	ActionCreateOrder Action = iota + 1
	ActionDeleteOrder
	ActionPayOrder
	ActionViewOwnOrders
	ActionCollectCash
	ActionOverridePayment
	ActionClearPending
	ActionSearchOrders
	ActionUploadOriginal
	ActionProcess
	ActionViewReports
	ActionManageStaff
	ActionManageSettings
)

var actionNames = map[Action]string{
	ActionCreateOrder:     "create_order",
	ActionDeleteOrder:     "delete_order",
	ActionPayOrder:        "pay_order",
	ActionViewOwnOrders:   "view_own_orders",
	ActionCollectCash:     "collect_cash",
	ActionOverridePayment: "override_payment",
	ActionClearPending:    "clear_pending",
	ActionSearchOrders:    "search_orders",
	ActionUploadOriginal:  "upload_original",
	ActionProcess:         "process",
	ActionViewReports:     "view_reports",
	ActionManageStaff:     "manage_staff",
	ActionManageSettings:  "manage_settings",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

type actionSet map[Action]struct{}

func allow(actions ...Action) actionSet {
	s := make(actionSet, len(actions))
	for _, a := range actions {
		s[a] = struct{}{}
	}
	return s
}

// Everyone signed in can order for themselves.
var ownOrderActions = []Action{ActionCreateOrder, ActionDeleteOrder, ActionPayOrder, ActionViewOwnOrders}

func with(base []Action, extra ...Action) []Action {
	out := make([]Action, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// permissions is the single source of truth for role checks.  Anonymous is
// absent on purpose: it may do nothing that needs a permission.
var permissions = map[Role]actionSet{
	RoleCustomer:  allow(ownOrderActions...),
	RoleCashier:   allow(with(ownOrderActions, ActionCollectCash, ActionSearchOrders)...),
	RoleOperator:  allow(with(ownOrderActions, ActionSearchOrders, ActionUploadOriginal)...),
	RoleProcessor: allow(with(ownOrderActions, ActionProcess)...),
	RoleManager: allow(with(ownOrderActions,
		ActionCollectCash,
		ActionOverridePayment,
		ActionClearPending,
		ActionSearchOrders,
		ActionUploadOriginal,
		ActionViewReports,
		ActionManageStaff,
		ActionManageSettings)...),
}

// Allowed reports whether role may perform action.
func Allowed(role Role, action Action) bool {
	set, ok := permissions[role]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}
