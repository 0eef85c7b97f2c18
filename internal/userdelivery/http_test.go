package userdelivery

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/middleware"
	"github.com/go-petr/sacco/pkg/passpkg"
	"github.com/go-petr/sacco/pkg/randompkg"
	"github.com/go-petr/sacco/pkg/tokenpkg"
	"github.com/go-petr/sacco/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.ReleaseMode)
	os.Exit(m.Run())
}

func randomUser(role string) domain.UserWihtoutPassword {
	return domain.UserWihtoutPassword{
		Username:  randompkg.Username(),
		FullName:  randompkg.FullName(),
		Role:      role,
		CreatedAt: time.Now().Truncate(time.Second).UTC(),
	}
}

func TestLoginAPI(t *testing.T) {
	user := randomUser(domain.RoleStaff)
	password := randompkg.String(10)

	payload, err := tokenpkg.NewPayload(user.Username, user.Role, time.Minute)
	require.NoError(t, err)

	testCases := []struct {
		name          string
		requestBody   gin.H
		buildStubs    func(userService *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name:        "OK",
			requestBody: gin.H{"username": user.Username, "password": password},
			buildStubs: func(userService *MockService) {
				userService.EXPECT().
					Login(gomock.Any(), gomock.Eq(user.Username), gomock.Eq(password)).
					Times(1).
					Return("v2.local.token", payload, user, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				got := &data{}
				res := web.Response{Data: got}
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
				require.Equal(t, "v2.local.token", res.AccessToken)
				require.Equal(t, payload.ExpiredAt.UTC().Format(time.RFC3339), res.AccessTokenExpiresAt)
				require.Equal(t, user.Username, got.User.Username)
				require.Equal(t, domain.RoleStaff, got.User.Role)
			},
		},
		{
			name:        "InvalidUsername",
			requestBody: gin.H{"username": "user&%", "password": password},
			buildStubs: func(userService *MockService) {
				userService.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name:        "ShortPassword",
			requestBody: gin.H{"username": user.Username, "password": "xyz"},
			buildStubs: func(userService *MockService) {
				userService.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name:        "UserNotFound",
			requestBody: gin.H{"username": user.Username, "password": password},
			buildStubs: func(userService *MockService) {
				userService.EXPECT().
					Login(gomock.Any(), gomock.Eq(user.Username), gomock.Eq(password)).
					Times(1).
					Return("", nil, domain.UserWihtoutPassword{}, domain.ErrUserNotFound)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusNotFound, recorder.Code)
			},
		},
		{
			name:        "WrongPassword",
			requestBody: gin.H{"username": user.Username, "password": password},
			buildStubs: func(userService *MockService) {
				userService.EXPECT().
					Login(gomock.Any(), gomock.Eq(user.Username), gomock.Eq(password)).
					Times(1).
					Return("", nil, domain.UserWihtoutPassword{}, domain.ErrWrongPassword)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name:        "InternalError",
			requestBody: gin.H{"username": user.Username, "password": password},
			buildStubs: func(userService *MockService) {
				userService.EXPECT().
					Login(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return("", nil, domain.UserWihtoutPassword{}, web.ErrInternal)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusInternalServerError, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			userService := NewMockService(ctrl)
			tc.buildStubs(userService)

			server := gin.New()
			server.POST("/users/login", NewHandler(userService).Login)

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)

			request, err := http.NewRequest(http.MethodPost, "/users/login", bytes.NewReader(body))
			require.NoError(t, err)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, request)

			tc.checkResponse(recorder)
		})
	}
}

func TestCreateAPI(t *testing.T) {
	user := randomUser(domain.RoleAuditor)
	password := randompkg.String(10)

	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	validBody := gin.H{
		"username":  user.Username,
		"password":  password,
		"full_name": user.FullName,
		"role":      user.Role,
	}

	testCases := []struct {
		name       string
		role       string
		body       gin.H
		buildStubs func(userService *MockService)
		wantCode   int
	}{
		{
			name: "OK",
			role: domain.RoleAdmin,
			body: validBody,
			buildStubs: func(userService *MockService) {
				userService.EXPECT().
					Create(gomock.Any(), user.Username, password, user.FullName, user.Role).
					Times(1).
					Return(user, nil)
			},
			wantCode: http.StatusCreated,
		},
		{
			name: "StaffForbidden",
			role: domain.RoleStaff,
			body: validBody,
			buildStubs: func(userService *MockService) {
				userService.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantCode: http.StatusForbidden,
		},
		{
			name: "UsernameTaken",
			role: domain.RoleAdmin,
			body: validBody,
			buildStubs: func(userService *MockService) {
				userService.EXPECT().
					Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.UserWihtoutPassword{}, domain.ErrUsernameAlreadyExists)
			},
			wantCode: http.StatusConflict,
		},
		{
			name: "UnknownRole",
			role: domain.RoleAdmin,
			body: validBody,
			buildStubs: func(userService *MockService) {
				userService.EXPECT().
					Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.UserWihtoutPassword{}, domain.ErrUnknownRole)
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "PasswordTooLong",
			role: domain.RoleAdmin,
			body: validBody,
			buildStubs: func(userService *MockService) {
				userService.EXPECT().
					Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.UserWihtoutPassword{}, fmt.Errorf("cannot hash password: %w", passpkg.ErrTooLong))
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "MissingFullName",
			role: domain.RoleAdmin,
			body: gin.H{"username": user.Username, "password": password, "role": user.Role},
			buildStubs: func(userService *MockService) {
				userService.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantCode: http.StatusBadRequest,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			userService := NewMockService(ctrl)
			tc.buildStubs(userService)

			server := gin.New()
			server.POST("/users",
				middleware.AuthMiddleware(tokenMaker),
				middleware.RequireCapability(middleware.CapUsersManage),
				NewHandler(userService).Create)

			body, err := json.Marshal(tc.body)
			require.NoError(t, err)

			request, err := http.NewRequest(http.MethodPost, "/users", bytes.NewReader(body))
			require.NoError(t, err)

			err = middleware.AddAuthorization(request, tokenMaker, middleware.AuthTypeBearer, "root", tc.role, time.Minute)
			require.NoError(t, err)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, request)

			require.Equal(t, tc.wantCode, recorder.Code)
		})
	}
}

func TestListAPI(t *testing.T) {
	users := []domain.UserWihtoutPassword{randomUser(domain.RoleAdmin), randomUser(domain.RoleStaff)}

	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	testCases := []struct {
		name          string
		role          string
		query         string
		buildStubs    func(userService *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name:  "OK",
			role:  domain.RoleAdmin,
			query: "?page_id=2&page_size=5",
			buildStubs: func(userService *MockService) {
				userService.EXPECT().
					List(gomock.Any(), int32(5), int32(2)).
					Times(1).
					Return(users, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				got := &dataUsers{}
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&web.Response{Data: got}))
				require.Equal(t, users, got.Users)
			},
		},
		{
			name:  "AuditorForbidden",
			role:  domain.RoleAuditor,
			query: "?page_id=1&page_size=5",
			buildStubs: func(userService *MockService) {
				userService.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusForbidden, recorder.Code)
			},
		},
		{
			name:  "PageSizeTooLarge",
			role:  domain.RoleAdmin,
			query: "?page_id=1&page_size=500",
			buildStubs: func(userService *MockService) {
				userService.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name:  "InternalError",
			role:  domain.RoleAdmin,
			query: "?page_id=1&page_size=5",
			buildStubs: func(userService *MockService) {
				userService.EXPECT().
					List(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(nil, sql.ErrConnDone)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusInternalServerError, recorder.Code)

				var res web.Response
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
				require.Equal(t, web.ErrInternal.Error(), res.Error)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			userService := NewMockService(ctrl)
			tc.buildStubs(userService)

			server := gin.New()
			server.GET("/users",
				middleware.AuthMiddleware(tokenMaker),
				middleware.RequireCapability(middleware.CapUsersManage),
				NewHandler(userService).List)

			request, err := http.NewRequest(http.MethodGet, "/users"+tc.query, nil)
			require.NoError(t, err)

			err = middleware.AddAuthorization(request, tokenMaker, middleware.AuthTypeBearer, "root", tc.role, time.Minute)
			require.NoError(t, err)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, request)

			tc.checkResponse(recorder)
		})
	}
}

func TestChangeRoleAPI(t *testing.T) {
	user := randomUser(domain.RoleStaff)

	testCases := []struct {
		name       string
		username   string
		body       gin.H
		buildStubs func(userService *MockService)
		wantCode   int
	}{
		{
			name:     "OK",
			username: user.Username,
			body:     gin.H{"role": domain.RoleAuditor},
			buildStubs: func(userService *MockService) {
				changed := user
				changed.Role = domain.RoleAuditor

				userService.EXPECT().
					ChangeRole(gomock.Any(), user.Username, domain.RoleAuditor).
					Times(1).
					Return(changed, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "MissingRole",
			username: user.Username,
			body:     gin.H{},
			buildStubs: func(userService *MockService) {
				userService.EXPECT().ChangeRole(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "InvalidUsername",
			username: "bad-name",
			body:     gin.H{"role": domain.RoleAdmin},
			buildStubs: func(userService *MockService) {
				userService.EXPECT().ChangeRole(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "UnknownRole",
			username: user.Username,
			body:     gin.H{"role": "OWNER"},
			buildStubs: func(userService *MockService) {
				userService.EXPECT().
					ChangeRole(gomock.Any(), user.Username, "OWNER").
					Times(1).
					Return(domain.UserWihtoutPassword{}, domain.ErrUnknownRole)
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "UserNotFound",
			username: user.Username,
			body:     gin.H{"role": domain.RoleAdmin},
			buildStubs: func(userService *MockService) {
				userService.EXPECT().
					ChangeRole(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.UserWihtoutPassword{}, domain.ErrUserNotFound)
			},
			wantCode: http.StatusNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			userService := NewMockService(ctrl)
			tc.buildStubs(userService)

			server := gin.New()
			server.PATCH("/users/:username/role", NewHandler(userService).ChangeRole)

			body, err := json.Marshal(tc.body)
			require.NoError(t, err)

			request, err := http.NewRequest(http.MethodPatch, "/users/"+tc.username+"/role", bytes.NewReader(body))
			require.NoError(t, err)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, request)

			require.Equal(t, tc.wantCode, recorder.Code)
		})
	}
}
