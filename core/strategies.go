package core

import (
	"context"
	"fmt"
	"strings"
)

// ResourceAccessStrategy drives resource-access requests. When AllowedTag is
// set, only resources carrying the tag may be requested at all; the rest are
// vetoed before any record is created.
type ResourceAccessStrategy struct {
	AllowedTag string
}

func (ResourceAccessStrategy) Kind() GrantKind { return GrantKindResource }

func (ResourceAccessStrategy) ObjectName() string { return "resource" }

func (ResourceAccessStrategy) OperationDescription() string { return "access" }

func (ResourceAccessStrategy) GetItemByName(ctx context.Context, dir DirectoryClient, name string) (ResourceRef, error) {
	if dir == nil {
		return ResourceRef{}, internalError("core: directory client is not configured")
	}
	return dir.FindResourceByName(ctx, name)
}

func (ResourceAccessStrategy) ListItemNames(ctx context.Context, dir DirectoryClient) ([]string, error) {
	if dir == nil {
		return nil, internalError("core: directory client is not configured")
	}
	resources, err := dir.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	return resourceNames(resources), nil
}

func (s ResourceAccessStrategy) HasPermission(resource ResourceRef, _ AccountRef, searchedName string) string {
	tag := strings.TrimSpace(s.AllowedTag)
	if tag == "" {
		return ""
	}
	if resource.HasTag(tag) {
		return ""
	}
	return fmt.Sprintf("Sorry, you cannot request access to resource \"%s\".", searchedName)
}

// RoleAccessStrategy drives role-access requests. When EligibilityTag is
// set, the requesting account must carry it to enter a request.
type RoleAccessStrategy struct {
	EligibilityTag string
}

func (RoleAccessStrategy) Kind() GrantKind { return GrantKindRole }

func (RoleAccessStrategy) ObjectName() string { return "role" }

func (RoleAccessStrategy) OperationDescription() string { return "role access" }

func (RoleAccessStrategy) GetItemByName(ctx context.Context, dir DirectoryClient, name string) (ResourceRef, error) {
	if dir == nil {
		return ResourceRef{}, internalError("core: directory client is not configured")
	}
	return dir.FindRoleByName(ctx, name)
}

func (RoleAccessStrategy) ListItemNames(ctx context.Context, dir DirectoryClient) ([]string, error) {
	if dir == nil {
		return nil, internalError("core: directory client is not configured")
	}
	roles, err := dir.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	return resourceNames(roles), nil
}

func (s RoleAccessStrategy) HasPermission(_ ResourceRef, account AccountRef, searchedName string) string {
	tag := strings.TrimSpace(s.EligibilityTag)
	if tag == "" {
		return ""
	}
	if account.HasTag(tag) {
		return ""
	}
	return fmt.Sprintf("Sorry, you're not eligible to request access to role \"%s\".", searchedName)
}

func resourceNames(items []ResourceRef) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}

func defaultStrategies() []GrantStrategy {
	return []GrantStrategy{
		ResourceAccessStrategy{},
		RoleAccessStrategy{},
	}
}
