package docs

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"meetspace-api/internal/domain"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Request schemas must describe the DTOs the handlers decode.
func TestRequestSchemasMatchDTOs(t *testing.T) {
	doc, err := openapi3.NewLoader().LoadFromData(SpecBytes())
	require.NoError(t, err)

	tests := []struct {
		schema string
		dto    any
	}{
		{"RegisterUserRequest", domain.RegisterUserRequest{}},
		{"CreateWorkspaceRequest", domain.CreateWorkspaceRequest{}},
		{"AddMemberRequest", domain.AddMemberRequest{}},
		{"AssignPermissionRequest", domain.AssignPermissionRequest{}},
		{"AssignRoleRequest", domain.AssignRoleRequest{}},
		{"AccessCheckRequest", domain.AccessCheckRequest{}},
		{"CreateMeetingRequest", domain.CreateMeetingRequest{}},
		{"JoinMeetingRequest", domain.JoinMeetingRequest{}},
		{"TranslateRequest", domain.TranslateRequest{}},
		{"VoiceCommandRequest", domain.VoiceCommandRequest{}},
		{"SaveRecordingRequest", domain.SaveRecordingRequest{}},
		{"CreateLogRequest", domain.CreateLogRequest{}},
		{"CreateEventRequest", domain.CreateEventRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.schema, func(t *testing.T) {
			ref := doc.Components.Schemas[tt.schema]
			require.NotNil(t, ref, "schema %s not declared", tt.schema)
			schema := ref.Value

			typ := reflect.TypeOf(tt.dto)
			for i := 0; i < typ.NumField(); i++ {
				f := typ.Field(i)
				name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
				if name == "" || name == "-" {
					continue
				}
				assert.Contains(t, schema.Properties, name, "property %s", name)

				rules := strings.Split(f.Tag.Get("validate"), ",")
				if slices.Contains(rules, "required") {
					assert.Contains(t, schema.Required, name, "required %s", name)
				}
			}
		})
	}
}
