// Copyright 2025 The sockframe Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wait

import (
	"context"

	"github.com/sockframe/sockframe/internal/rescue"
)

// Until 循环执行 fn 直到 ctx 结束
//
// 每一轮执行都带 panic 保护 scope 标识事故现场
// fn 自身需要保证单轮会正常返回 否则 ctx 的取消无法被观测
func Until(ctx context.Context, scope string, fn func()) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			defer rescue.HandleCrash(scope)
			fn()
		}()
	}
}
