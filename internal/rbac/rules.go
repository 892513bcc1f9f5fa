package rbac

const (
	RoleLearner = "learner"
	RoleAdmin   = "admin"
)

const (
	PermQuizView       = "quiz:view"
	PermQuizPublish    = "quiz:publish"
	PermQuizComplete   = "quiz:complete"
	PermResultsViewOwn = "results:view-own"
	PermProgressOwn    = "progress:own"
)

// RolePermissions is the default policy of the gateway.
var RolePermissions = map[string][]string{
	RoleLearner: {
		PermQuizView,
		PermQuizComplete,
		PermResultsViewOwn,
		PermProgressOwn,
	},
	RoleAdmin: {
		"*",
	},
}
