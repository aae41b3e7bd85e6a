package audit

import "fmt"

// AuthzEvent records one tenant-admin authorization decision.
type AuthzEvent struct {
	OrganizationID string
	Email          string
	ClientIP       string
	Allowed        bool
	Reason         string
	// Operational is set when the decision failed closed on a store fault.
	Operational bool
}

func (e AuthzEvent) MessageID() string {
	return "authz"
}

func (e AuthzEvent) Message() string {
	subject := e.Email
	if subject == "" {
		subject = "anonymous"
	}
	org := e.OrganizationID
	if org == "" {
		org = "unknown organization"
	}
	if e.Allowed {
		return fmt.Sprintf("%s authorized as admin of %s", subject, org)
	}
	msg := fmt.Sprintf("%s denied admin of %s", subject, org)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e AuthzEvent) Severity() Severity {
	switch {
	case e.Allowed:
		return SeverityInfo
	case e.Operational:
		return SeverityError
	default:
		return SeverityWarning
	}
}

func (e AuthzEvent) Facility() int {
	return FacilityAuthPriv
}

func (e AuthzEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": e.Email,
		},
		SDIDSubject: {
			"organization": e.OrganizationID,
			"group":        "Admin",
		},
		SDIDAction: {
			"operation": "authorize",
			"result":    result(e.Allowed),
		},
	}
	if e.ClientIP != "" {
		sd[SDIDClient] = map[string]string{"ip": e.ClientIP}
	}
	if e.Reason != "" {
		sd[SDIDAction]["reason"] = e.Reason
	}
	return sd
}

// UserGroupCreateEvent records an attempt to create a user group.
type UserGroupCreateEvent struct {
	// ActorID is the caller that requested the creation, if known.
	ActorID        string
	UserID         string
	OrganizationID string
	GroupName      string
	GroupID        string
	ClientIP       string
	Success        bool
	ErrorMessage   string
}

func (e UserGroupCreateEvent) MessageID() string {
	return "usergroup-create"
}

func (e UserGroupCreateEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("group %s created for user %s in organization %s", e.GroupName, e.UserID, e.OrganizationID)
	}
	msg := fmt.Sprintf("failed to create group %s for user %s in organization %s", e.GroupName, e.UserID, e.OrganizationID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e UserGroupCreateEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e UserGroupCreateEvent) Facility() int {
	return FacilityAuth
}

func (e UserGroupCreateEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDSubject: {
			"organization": e.OrganizationID,
			"user":         e.UserID,
			"group":        e.GroupName,
		},
		SDIDAction: {
			"operation": "create",
			"result":    result(e.Success),
		},
	}
	if e.ActorID != "" {
		sd[SDIDAuth] = map[string]string{"user": e.ActorID}
	}
	if e.GroupID != "" {
		sd[SDIDSubject]["id"] = e.GroupID
	}
	if e.ClientIP != "" {
		sd[SDIDClient] = map[string]string{"ip": e.ClientIP}
	}
	return sd
}
